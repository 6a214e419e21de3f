package store

import (
	C "daymart/config"
	"daymart/model/model"
	storeMem "daymart/model/store/memstore"
	storePG "daymart/model/store/postgres"
)

// GetStore decides on the model implementation by configuration: the
// gorm-backed warehouse store by default, the in-memory store for tests
// and warehouse-less local runs.
func GetStore() model.Model {
	if C.UseMemoryStore() {
		return storeMem.GetInstance()
	}
	return &storePG.Postgres{}
}
