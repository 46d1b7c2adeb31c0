// Command blast submits a voicemail blast to a running engine from a local
// lead file. It accepts either a CSV with a "phone" column or a JSON file
// with a "numbers" array, normalizes entries to E.164, and prints the
// per-number report.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type blastPayload struct {
	TenantID   string   `json:"tenant_id"`
	CampaignID string   `json:"campaign_id,omitempty"`
	Numbers    []string `json:"numbers"`
}

func main() {
	apiURL := flag.String("api", getEnv("VOICEDROP_API_URL", "http://localhost:8080"), "engine base URL")
	tenantID := flag.String("tenant", "", "tenant id (required)")
	campaignID := flag.String("campaign", "", "campaign id selecting the voicemail recording")
	input := flag.String("input", "leads.csv", "lead file (.csv with a phone column, or .json with a numbers array)")
	timeout := flag.Duration("timeout", 30*time.Minute, "request timeout; blasts run synchronously")
	flag.Parse()

	if *tenantID == "" {
		log.Fatal("-tenant is required")
	}

	numbers, err := loadNumbers(*input)
	if err != nil {
		log.Fatalf("load numbers: %v", err)
	}
	if len(numbers) == 0 {
		log.Fatalf("no valid phone numbers found in %s", *input)
	}

	log.Printf("Blasting %d numbers from %s...", len(numbers), *input)

	payload := blastPayload{
		TenantID:   *tenantID,
		CampaignID: *campaignID,
		Numbers:    numbers,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("encode payload: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Post(strings.TrimRight(*apiURL, "/")+"/api/v1/blasts", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("submit blast: %v", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		pretty.Write(out)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("blast rejected (%s):\n%s", resp.Status, pretty.String())
	}
	fmt.Printf("Blast result:\n%s\n", pretty.String())
}

func loadNumbers(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var payload struct {
			Numbers []string `json:"numbers"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		numbers := make([]string, 0, len(payload.Numbers))
		for _, n := range payload.Numbers {
			if normalized := normalizePhone(n); normalized != "" {
				numbers = append(numbers, normalized)
			}
		}
		return numbers, nil
	}

	return parseCSVPhones(raw)
}

func parseCSVPhones(raw []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	phoneIdx := -1
	for i, col := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(col), "phone") {
			phoneIdx = i
			break
		}
	}
	if phoneIdx == -1 {
		return nil, fmt.Errorf(`csv must contain a "phone" column`)
	}

	var numbers []string
	for _, row := range rows[1:] {
		if phoneIdx >= len(row) {
			continue
		}
		if normalized := normalizePhone(row[phoneIdx]); normalized != "" {
			numbers = append(numbers, normalized)
		}
	}
	return numbers, nil
}

// normalizePhone strips formatting and coerces bare national numbers into
// E.164, assuming NANP when no country code is present.
func normalizePhone(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch {
	case cleaned == "":
		return ""
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, "1"):
		return "+" + cleaned
	default:
		return "+1" + cleaned
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
