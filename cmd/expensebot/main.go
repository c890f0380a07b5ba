package main

import (
	"log"

	corecmd "github.com/m3rciful/expensebot/core/cmd"
	"github.com/m3rciful/expensebot/internal/app"
	"github.com/m3rciful/expensebot/internal/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		EnvFiles:          []string{".env"},
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
