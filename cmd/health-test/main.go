package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database componentStatus `json:"database"`
		Storage  componentStatus `json:"storage"`
		Gemini   struct {
			Configured bool   `json:"configured"`
			Model      string `json:"model"`
		} `json:"gemini"`
	} `json:"services"`
}

func main() {
	url := "http://localhost:8080/health"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("🔍 Testing health endpoint: %s\n", url)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("❌ Error connecting to health endpoint: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("❌ Error reading response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("📊 Response Status: %s\n", resp.Status)

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fmt.Printf("❌ Error parsing JSON response: %v\n", err)
		fmt.Printf("📄 Response Body: %s\n", string(body))
		os.Exit(1)
	}

	fmt.Printf("   Database: %s\n", health.Services.Database.Status)
	fmt.Printf("   Storage:  %s\n", health.Services.Storage.Status)
	fmt.Printf("   Gemini:   configured=%t model=%s\n", health.Services.Gemini.Configured, health.Services.Gemini.Model)

	if resp.StatusCode != http.StatusOK || health.Status != "ok" {
		fmt.Printf("❌ Health check failed: status=%s http=%d\n", health.Status, resp.StatusCode)
		if health.Services.Database.Error != "" {
			fmt.Printf("   Database error: %s\n", health.Services.Database.Error)
		}
		os.Exit(1)
	}
	if health.Services.Storage.Status != "ok" {
		fmt.Printf("⚠️  Storage not configured: %s\n", health.Services.Storage.Error)
	}

	fmt.Printf("✅ Health check passed!\n")
	fmt.Printf("   Version: %s\n", health.Version)
	fmt.Printf("   Timestamp: %s\n", health.Timestamp)
}
