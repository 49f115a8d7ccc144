package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"bodyscan-go/internal/client"
	"bodyscan-go/pkg/models"

	"github.com/sirupsen/logrus"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "BodyScan API server")
	processing := flag.String("processing", "http://localhost:8000", "processing service")
	height := flag.Float64("height", 175, "height in cm")
	weight := flag.Float64("weight", 75, "weight in kg")
	age := flag.Int("age", 30, "age")
	sex := flag.String("sex", "male", "male or female")
	flag.Parse()

	// Проверяем health endpoint API сервера
	fmt.Println("Проверка health endpoint...")
	resp, err := http.Get(*server + "/api/v1/health")
	if err != nil {
		fmt.Printf("Health endpoint недоступен: %v\n", err)
	} else {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fmt.Printf("Ответ health check (статус %d):\n%s\n\n", resp.StatusCode, string(body))
	}

	if flag.NArg() < 2 {
		fmt.Println("To test a scan run: go run test_client.go [flags] <front_image> <side_image>")
		return
	}

	if err := testScan(*processing, flag.Arg(0), flag.Arg(1), models.Subject{
		HeightCm: *height,
		WeightKg: *weight,
		Age:      *age,
		Sex:      models.Sex(*sex),
	}); err != nil {
		fmt.Printf("Тест скана не прошел: %v\n", err)
		os.Exit(1)
	}
}

func testScan(baseURL, frontPath, sidePath string, subject models.Subject) error {
	front, err := os.ReadFile(frontPath)
	if err != nil {
		return fmt.Errorf("ошибка чтения фронтального изображения: %w", err)
	}
	side, err := os.ReadFile(sidePath)
	if err != nil {
		return fmt.Errorf("ошибка чтения бокового изображения: %w", err)
	}

	logger := logrus.New()
	api := client.NewProcessingClient(baseURL, client.DefaultTimeout, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("Отправка запроса на скан...")
	result, err := api.Scan(ctx, client.ScanRequest{
		FrontImage:    front,
		FrontFilename: frontPath,
		SideImage:     side,
		SideFilename:  sidePath,
		Subject:       subject,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("Результат скана:\n%s\n", out)
	return nil
}
