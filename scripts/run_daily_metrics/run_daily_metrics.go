package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	C "daymart/config"
	"daymart/metrics"
	"daymart/model/store"
	"daymart/task/pipeline"
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
	lookbackDays := flag.Int("lookback_days", 0, "Recompute this many days before the date as backfill.")

	flag.Parse()

	if !C.IsValidEnv(*env) {
		err := fmt.Errorf("env [ %s ] not recognised", *env)
		panic(err)
	}

	config := &C.Configuration{
		AppName:   "daily_metrics",
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
	metrics.InitMetrics(config.Env, config.AppName)

	if !C.UseMemoryStore() {
		if err := C.InitDB(config.DBInfo); err != nil {
			log.WithError(err).Fatal("Failed to initialize db in daily metrics.")
		}
	}

	conf, err := C.LoadPipelineConf(C.GetConfig().PipelineFilepath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load pipeline definition.")
	}

	// The window date is resolved here and only here.
	targetDate := *date
	if targetDate == "" {
		targetDate = U.YesterdayDateZ()
	}
	if !U.IsValidDate(targetDate) {
		log.WithField("date", targetDate).Fatal("Invalid partition date.")
	}

	dates := []string{targetDate}
	if *lookbackDays > 0 {
		from, err := U.DateBeforeDays(targetDate, *lookbackDays)
		if err != nil {
			log.WithError(err).Fatal("Failed to resolve lookback range.")
		}
		if dates, err = U.DateRange(from, targetDate); err != nil {
			log.WithError(err).Fatal("Failed to resolve lookback range.")
		}
	}

	statuses := pipeline.Run(store.GetStore(), conf, dates)

	failures := 0
	for _, dt := range dates {
		status := statuses[dt]
		log.WithFields(log.Fields{"status": status}).Info("Partition status.")
		if status.Error != "" || !status.Published {
			failures++
		}
	}

	log.WithFields(log.Fields{"no_of_dates": len(dates),
		"failures": failures}).Info("Daily metrics run completed.")
	if failures > 0 {
		os.Exit(1)
	}
}
