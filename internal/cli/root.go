// Package cli содержит командную строку сервиса поиска постов.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/x-research-team/post-query/internal/config"
	"github.com/x-research-team/post-query/internal/logging"
)

// Version задается при сборке.
var Version = "0.1.0"

// app - состояние, общее для подкоманд: загруженная конфигурация и логгер.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCmd создает корневую команду.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "postquery",
		Short: "Сервис чтения постов",
		Long: `postquery отвечает на запросы к модели чтения постов: все посты, пост по
идентификатору, посты автора, посты с комментариями и посты с лайками.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "файл конфигурации (по умолчанию ./postquery.yaml)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newQueryCommand(a))
	rootCmd.AddCommand(newKindsCommand(a))

	return rootCmd
}

// Execute запускает корневую команду.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		return err
	}
	return nil
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("не удалось настроить логирование: %w", err)
	}
	if cfg.File != "" {
		logger.Debug("используется файл конфигурации", "path", cfg.File)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
