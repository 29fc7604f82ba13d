package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/playmatatu/tombola/internal/config"
)

// Ticket is one registry entry. Only active tickets are eligible.
type Ticket struct {
	TicketNumber string `json:"numero_boleto"`
	HolderName   string `json:"nombre_usuario"`
	Active       int    `json:"activo"`
}

func (t Ticket) IsActive() bool {
	return t.Active == 1
}

// CategoryStats summarizes one category.
type CategoryStats struct {
	Category int `json:"category"`
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// ErrNotConfigured is returned by NewClient callers when no base URL is set.
var ErrNotConfigured = errors.New("ticket registry not configured")

// Client talks to the remote ticket registry.
type Client struct {
	baseURL      string
	fetchClient  *http.Client
	selectClient *http.Client
}

// New creates a registry client with explicit timeouts.
func New(baseURL string, fetchTimeout, selectTimeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		fetchClient:  &http.Client{Timeout: fetchTimeout},
		selectClient: &http.Client{Timeout: selectTimeout},
	}
}

// NewClient creates a registry client from configuration
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil || cfg.RegistryBaseURL == "" {
		return nil, ErrNotConfigured
	}
	return New(
		cfg.RegistryBaseURL,
		time.Duration(cfg.RegistryFetchTimeoutSecs)*time.Second,
		time.Duration(cfg.RegistrySelectTimeoutSecs)*time.Second,
	), nil
}

// FetchAll returns every ticket keyed by category id.
func (c *Client) FetchAll(ctx context.Context) (map[int][]Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/boletos", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.fetchClient.Do(req)
	if err != nil {
		log.Printf("[REGISTRY] Fetch tickets failed: %v", err)
		return nil, fmt.Errorf("fetch tickets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[REGISTRY] Fetch tickets failed: status=%d body=%s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("fetch tickets failed with status %d", resp.StatusCode)
	}

	var raw map[string][]Ticket
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}

	out := make(map[int][]Ticket, len(raw))
	for key, tickets := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			log.Printf("[REGISTRY] Skipping non-numeric category %q", key)
			continue
		}
		out[id] = tickets
	}
	log.Printf("[REGISTRY] Fetched %d categories", len(out))
	return out, nil
}

type selectRequest struct {
	Level int `json:"nivel"`
}

type selectResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    *struct {
		Ticket string `json:"boleto"`
		Holder string `json:"usuario"`
	} `json:"data"`
}

// SelectWinner asks the registry to draw one ticket from a category. The
// call is a one-shot remote draw; callers must not retry it.
func (c *Client) SelectWinner(ctx context.Context, level int) (Ticket, error) {
	payload, err := json.Marshal(selectRequest{Level: level})
	if err != nil {
		return Ticket{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/boletos/seleccionar", bytes.NewReader(payload))
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to create select request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.selectClient.Do(req)
	if err != nil {
		log.Printf("[REGISTRY] Select winner failed for level %d: %v", level, err)
		return Ticket{}, fmt.Errorf("select winner: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ticket{}, fmt.Errorf("failed to read select response: %w", err)
	}

	var out selectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Ticket{}, fmt.Errorf("select winner failed with status %d", resp.StatusCode)
		}
		return Ticket{}, fmt.Errorf("failed to decode select response: %w", err)
	}

	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("registry rejected draw (status %d)", resp.StatusCode)
		}
		log.Printf("[REGISTRY] Select winner rejected for level %d: %s", level, msg)
		return Ticket{}, errors.New(msg)
	}
	if out.Data == nil || out.Data.Ticket == "" {
		return Ticket{}, errors.New("registry returned an empty winner")
	}

	log.Printf("[REGISTRY] Level %d winner: ticket=%s", level, out.Data.Ticket)
	return Ticket{TicketNumber: out.Data.Ticket, HolderName: out.Data.Holder, Active: 1}, nil
}

// Categories returns the category ids in ascending order.
func (c *Client) Categories(ctx context.Context) ([]int, error) {
	all, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Stats counts active and inactive tickets per category.
func (c *Client) Stats(ctx context.Context) ([]CategoryStats, error) {
	all, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(all), nil
}

// Summarize builds per-category stats sorted by category id.
func Summarize(all map[int][]Ticket) []CategoryStats {
	stats := make([]CategoryStats, 0, len(all))
	for id, tickets := range all {
		s := CategoryStats{Category: id, Total: len(tickets)}
		for _, t := range tickets {
			if t.IsActive() {
				s.Active++
			} else {
				s.Inactive++
			}
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Category < stats[j].Category })
	return stats
}
