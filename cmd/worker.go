package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/etl"
	"github.com/clearsight-analytics/churn-cli/internal/workflow"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal ETL worker",
	Long:  "Registers the ETL workflow and its activities on the configured task queue and blocks until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := storePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := etl.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "worker: migrate")
		}

		rules, err := segmentRules()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.ETL.TempDir, 0o755); err != nil {
			return eris.Wrapf(err, "worker: create temp dir %s", cfg.ETL.TempDir)
		}

		activities := &workflow.Activities{
			Pool:    pool,
			Rules:   rules,
			Extract: extractOptions(""),
			TempDir: cfg.ETL.TempDir,
		}

		if cfg.ETL.SyncMirror {
			mirror, err := openMirror(pool)
			if err != nil {
				return err
			}
			defer mirror.Close() //nolint:errcheck
			if err := mirror.Migrate(ctx); err != nil {
				return eris.Wrap(err, "worker: migrate warehouse")
			}
			activities.Mirror = mirror
		}

		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		w := worker.New(c, taskQueue(), worker.Options{})
		workflow.Register(w, activities)

		zap.L().Info("worker started",
			zap.String("task_queue", taskQueue()),
			zap.String("host_port", cfg.Temporal.HostPort),
		)
		if err := w.Run(worker.InterruptCh()); err != nil {
			return eris.Wrap(err, "worker run")
		}
		return nil
	},
}

var triggerSource string

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Start an ETL workflow run",
	Long:  "Starts the ETL workflow on the task queue and waits for the result. A worker must be running.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		source := triggerSource
		if source == "" {
			source = cfg.ETL.Source
		}

		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "churn-etl-" + uuid.NewString(),
			TaskQueue: taskQueue(),
		}, workflow.ChurnETL, workflow.ETLInput{
			Source:      source,
			MaxAttempts: int32(cfg.ETL.MaxRetries),
			RetryDelay:  time.Duration(cfg.ETL.RetryDelay) * time.Second,
		})
		if err != nil {
			return eris.Wrap(err, "trigger: start workflow")
		}

		zap.L().Info("workflow started",
			zap.String("workflow_id", run.GetID()),
			zap.String("run_id", run.GetRunID()),
		)

		var result workflow.ETLResult
		if err := run.Get(ctx, &result); err != nil {
			return eris.Wrap(err, "trigger: workflow failed")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return nil, eris.Wrap(err, "cmd: dial temporal")
	}
	return c, nil
}

func taskQueue() string {
	if cfg.Temporal.TaskQueue != "" {
		return cfg.Temporal.TaskQueue
	}
	return workflow.TaskQueueDefault
}

func init() {
	triggerCmd.Flags().StringVar(&triggerSource, "source", "", "customer CSV path or URL (default from config)")
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(triggerCmd)
}
