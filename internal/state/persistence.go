package state

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-trading-bot/internal/logger"
)

const (
	stateVersion = "1"
	stateFile    = "bot_state.json"
	backupFile   = "bot_state_backup.json"
	dayLayout    = "2006-01-02"
)

// Position is a tracked holding with its volume weighted entry
type Position struct {
	Symbol     string          `json:"symbol"`
	Size       decimal.Decimal `json:"size"`
	AvgEntry   decimal.Decimal `json:"avg_entry"`
	HighWater  decimal.Decimal `json:"high_water"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	RiskUSD    float64         `json:"risk_usd"`
	OpenedAt   time.Time       `json:"opened_at"`
}

// DayState is the recoverable part of the orchestrator
type DayState struct {
	Version       string     `json:"version"`
	Day           string     `json:"day"`
	DailyTrades   int        `json:"daily_trades"`
	DailyPnL      float64    `json:"daily_pnl"`
	LastTradeTime time.Time  `json:"last_trade_time"`
	Balance       float64    `json:"balance"`
	Positions     []Position `json:"positions"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DayOf formats the calendar day used for daily counters
func DayOf(t time.Time) string {
	return t.Format(dayLayout)
}

// SameDay reports whether the state belongs to the day of now
func (s DayState) SameDay(now time.Time) bool {
	return s.Day == DayOf(now)
}

// StatePersistence writes the day state as JSON, atomically
type StatePersistence struct {
	logger   *logger.Logger
	stateDir string

	mu       sync.Mutex
	lastSave time.Time
}

// NewStatePersistence prepares stateDir for state files
func NewStatePersistence(stateDir string, log *logger.Logger) (*StatePersistence, error) {
	if stateDir == "" {
		stateDir = "data"
	}
	if log == nil {
		log = logger.NewNop()
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &StatePersistence{logger: log, stateDir: stateDir}, nil
}

// Path returns the state file location
func (sp *StatePersistence) Path() string {
	return filepath.Join(sp.stateDir, stateFile)
}

// Save writes state to a temp file and renames it over the previous one,
// keeping the previous file as a backup
func (sp *StatePersistence) Save(state DayState) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	state.Version = stateVersion
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}

	path := sp.Path()
	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, filepath.Join(sp.stateDir, backupFile)); err != nil {
			sp.logger.LogWarning("State Backup", "Failed to create backup: %v", err)
		}
	}

	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}
	sp.lastSave = time.Now()
	return nil
}

// Load reads the saved state. A missing file is not an error; found is false.
// A corrupt state file falls back to the backup.
func (sp *StatePersistence) Load() (DayState, bool, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	state, err := readState(sp.Path())
	if os.IsNotExist(err) {
		return DayState{}, false, nil
	}
	if err != nil {
		sp.logger.LogWarning("State Load", "State file unreadable, trying backup: %v", err)
		backup, berr := readState(filepath.Join(sp.stateDir, backupFile))
		if berr != nil {
			return DayState{}, false, fmt.Errorf("failed to load state: %w", err)
		}
		return backup, true, nil
	}
	return state, true, nil
}

// LastSave returns when the state was last written
func (sp *StatePersistence) LastSave() time.Time {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.lastSave
}

func readState(path string) (DayState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DayState{}, err
	}
	var state DayState
	if err := json.Unmarshal(data, &state); err != nil {
		return DayState{}, err
	}
	if state.Version == "" {
		return DayState{}, fmt.Errorf("state version missing")
	}
	return state, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
