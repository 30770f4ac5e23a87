package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leasekeeper/config"
	"leasekeeper/database"
	"leasekeeper/services"
	"leasekeeper/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "leasekeeper",
		Short: "Учет договоров аренды и платежных обязательств",
		RunE:  runServe,
	}
	rootCmd.PersistentFlags().String("config", "", "путь к файлу конфигурации")

	rootCmd.AddCommand(serveCmd(), migrateCmd(), sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig читает конфигурацию и настраивает логгеры
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if err := utils.InitLoggers(cfg.Log.Dir, cfg.Log.Debug); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	clock, err := utils.NewSystemClock(cfg.Obligations.Timezone)
	if err != nil {
		return err
	}

	// Подключаемся к базе и применяем миграции
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}
	defer db.Close()

	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	app := newApplication(cfg, db.GetDB(), clock, services.NewEmailService(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		app.sweep.Start(ctx, cfg.Scheduler.Interval)
		utils.LogInfo("Планировщик обязательств запущен, интервал %v", cfg.Scheduler.Interval)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.engine(),
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.LogInfo("Сервер запущен на порту %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	case <-ctx.Done():
	}

	utils.LogInfo("Остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить SQL миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cfg); err != nil {
				return err
			}
			utils.LogInfo("Миграции применены")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Один раз достроить обязательства и пересчитать статусы",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var clock utils.Clock
			if raw, _ := cmd.Flags().GetString("today"); raw != "" {
				day, err := utils.ParseDate(raw)
				if err != nil {
					return err
				}
				clock = utils.FixedClock{Date: day}
			} else if clock, err = utils.NewSystemClock(cfg.Obligations.Timezone); err != nil {
				return err
			}

			var notifier services.Notifier
			if noMail, _ := cmd.Flags().GetBool("no-mail"); !noMail {
				notifier = services.NewEmailService(cfg)
			}

			db, err := database.NewDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			app := newApplication(cfg, db.GetDB(), clock, notifier)
			result, err := app.sweep.RunOnce(cmd.Context())
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "дата: %s\nдоговоров: %d\nсоздано обязательств: %d\nизменено статусов: %d\nпросрочено: %d\nписем: %d\n",
					result.Today.Format(time.DateOnly), result.ContractsProcessed, result.ObligationsCreated,
					result.StatusesChanged, result.BecameOverdue, result.NotificationsSent)
			}
			return err
		},
	}

	cmd.Flags().String("today", "", "дата прохода в формате ГГГГ-ММ-ДД (по умолчанию сегодня)")
	cmd.Flags().Bool("no-mail", false, "не отправлять уведомления о просрочке")

	return cmd
}
