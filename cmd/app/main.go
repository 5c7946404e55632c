package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	parker6k "github.com/ornl-epics/parker6k"
)

func main() {
	// 1) Загрузка конфигурации
	err := godotenv.Load("./.env")
	if err != nil {
		log.Printf("Warning: Could not load .env file. Using default values or environment variables: %v", err)
	}

	cfg := parker6k.Load()
	log.Printf("Конфигурация загружена: Name=%s, Transport=%s, Axes=%d", cfg.Name, cfg.Transport, cfg.NumAxes)

	// 2) Создание клиента и подключение к контроллеру
	c, err := parker6k.New(cfg)
	if err != nil {
		log.Fatalf("Ошибка создания клиента: %v", err)
	}
	defer c.Close()

	c.Report(os.Stdout, 1)

	// 3) Фоновый опрос до сигнала завершения
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := c.StartPolling(ctx)
	for result := range results {
		if result.Err != nil {
			continue
		}
		data, err := json.Marshal(result.Status)
		if err != nil {
			log.Printf("Ошибка маршалинга JSON: %v", err)
			continue
		}
		log.Printf("poll: %s", data)
	}
}
