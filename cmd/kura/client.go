package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hyperjump/kura/internal/models"
)

func queryViaHTTP(serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	var out models.QueryResponse
	if err := postJSON(serverURL+"/api/v1/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func chatViaHTTP(serverURL string, req *models.ChatRequest) (*models.ChatResponse, error) {
	var out models.ChatResponse
	if err := postJSON(serverURL+"/api/v1/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func reloadViaHTTP(serverURL string) (*models.ReloadResponse, error) {
	var out models.ReloadResponse
	if err := postJSON(serverURL+"/api/v1/knowledge-base/reload", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func statsViaHTTP(serverURL string) (*models.Stats, error) {
	var out models.Stats
	if err := getJSON(serverURL+"/api/v1/knowledge-base/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func chunksViaHTTP(serverURL, query string, limit int, fuzzy bool, column string) (*models.ChunkList, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if fuzzy {
		params.Set("fuzzy", "true")
	}
	if column != "" {
		params.Set("column", column)
	}
	var out models.ChunkList
	if err := getJSON(serverURL+"/api/v1/knowledge-base/chunks?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func postJSON(endpoint string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}
	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(endpoint string, out interface{}) error {
	resp, err := http.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
