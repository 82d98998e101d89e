package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tool-pressure/xiaohongshu/config"
	srv "github.com/tool-pressure/xiaohongshu/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "xhs"}
	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is xhs_config.json in the working directory)")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return srv.Run(cfgPath)
		},
	}

	var generate = &cobra.Command{
		Use:   "generate <topic>",
		Short: "Generate content for a topic and publish it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateRunReady(); err != nil {
				return err
			}
			factory := srv.NewWorkflowFactory(nil)
			gen, err := factory(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			report := gen.GenerateAndPublish(cmd.Context(), args[0])
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if !report.Success {
				os.Exit(1)
			}
			return nil
		},
	}

	root.AddCommand(serve, generate)
	_ = root.Execute()
}
