package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/model/store"
	"daymart/task/pipeline"
	"daymart/task/quality"
	U "daymart/util"
)

func main() {
	env := flag.String("env", C.DEVELOPMENT, "")
	dbHost := flag.String("db_host", "localhost", "")
	dbPort := flag.Int("db_port", 5432, "")
	dbUser := flag.String("db_user", "daymart", "")
	dbName := flag.String("db_name", "daymart", "")
	dbPass := flag.String("db_pass", "daymart", "")

	storeType := flag.String("store_type", C.StoreTypePostgres, "postgres or memory.")
	pipelineFilepath := flag.String("pipeline_filepath", "", "Pipeline definition YAML.")

	date := flag.String("date", "", "Partition date YYYY-MM-DD. Defaults to yesterday.")

	flag.Parse()

	if !C.IsValidEnv(*env) {
		err := fmt.Errorf("env [ %s ] not recognised", *env)
		panic(err)
	}

	config := &C.Configuration{
		AppName:   "quality_check",
		Env:       *env,
		StoreType: *storeType,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
		},
		PipelineFilepath: *pipelineFilepath,
	}

	C.InitConf(config)

	if !C.UseMemoryStore() {
		if err := C.InitDB(config.DBInfo); err != nil {
			log.WithError(err).Fatal("Failed to initialize db in quality check.")
		}
	}

	conf, err := C.LoadPipelineConf(C.GetConfig().PipelineFilepath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load pipeline definition.")
	}

	targetDate := *date
	if targetDate == "" {
		targetDate = U.YesterdayDateZ()
	}

	verdict, err := pipeline.RunGateForDate(store.GetStore(), conf, targetDate)
	if err != nil {
		log.WithError(err).Fatal("Quality check failed to run.")
	}

	if verdict.Alert != nil {
		log.WithField("severity", verdict.Alert.Severity).Warn(verdict.Alert.String())
	}
	log.WithFields(log.Fields{
		"date":         targetDate,
		"run_id":       verdict.Run.ID,
		"state":        verdict.Run.State,
		"max_severity": verdict.Run.MaxSeverity,
		"summary":      quality.BuildDailySummary(verdict.Results),
	}).Info("Quality check completed.")

	if !verdict.Run.SafeToConsume {
		os.Exit(1)
	}
}
