// Package persistence provides SQLite-based shop state storage: the player's
// coins, stock, backroom, decorations, shop settings, day history and a log
// of notable notifications.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/cozycorner/shopsim/internal/catalog"
	"github.com/cozycorner/shopsim/internal/economy"
	"github.com/cozycorner/shopsim/internal/engine"
	"github.com/cozycorner/shopsim/internal/notify"
)

// ErrNoSave is returned by Load when the database holds no saved game.
var ErrNoSave = errors.New("no saved game")

// Meta keys.
const (
	metaShopState = "shop_state"
	metaCoins     = "coins"
	metaSavedAt   = "saved_at"
)

// DB wraps a SQLite connection for shop state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stock (
		ordinal INTEGER PRIMARY KEY,
		item_id TEXT NOT NULL UNIQUE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inventory (
		ordinal INTEGER PRIMARY KEY,
		item_id TEXT NOT NULL UNIQUE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decorations (
		ordinal INTEGER PRIMARY KEY,
		decoration_id TEXT NOT NULL UNIQUE,
		active INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS day_history (
		day INTEGER NOT NULL,
		customers INTEGER NOT NULL,
		sales INTEGER NOT NULL,
		revenue TEXT NOT NULL,
		profit TEXT NOT NULL,
		reputation_before REAL NOT NULL,
		reputation_after REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		sim_time TEXT NOT NULL,
		kind TEXT NOT NULL,
		customer_id TEXT NOT NULL DEFAULT '',
		item_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shop_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Snapshot is everything needed to rebuild a shop between sessions.
type Snapshot struct {
	Shop        engine.ShopState
	Coins       decimal.Decimal
	Stock       []economy.StockEntry
	Inventory   []economy.InventoryEntry
	Decorations []economy.OwnedDecoration
}

// Capture reads a snapshot from the live shop.
func Capture(shop *engine.Shop, front *economy.Shopfront) Snapshot {
	return Snapshot{
		Shop:        shop.Snapshot(),
		Coins:       front.Wallet.Balance(),
		Stock:       front.Stock.List(),
		Inventory:   front.Inventory.List(),
		Decorations: front.Decorations.List(),
	}
}

// Shopfront rebuilds the trade state from the snapshot.
func (s Snapshot) Shopfront(cat *catalog.Catalog) *economy.Shopfront {
	return economy.NewShopfront(cat,
		economy.NewStock(s.Stock...),
		economy.NewInventory(s.Inventory...),
		economy.NewWallet(s.Coins),
		economy.NewDecorations(s.Decorations...),
	)
}

// Save writes a full snapshot in one transaction (full replace).
func (db *DB) Save(snap Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveStock(tx, snap.Stock); err != nil {
		return fmt.Errorf("save stock: %w", err)
	}
	if err := saveInventory(tx, snap.Inventory); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	if err := saveDecorations(tx, snap.Decorations); err != nil {
		return fmt.Errorf("save decorations: %w", err)
	}
	if err := saveHistory(tx, snap.Shop.History); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	state := snap.Shop
	state.History = nil
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode shop state: %w", err)
	}
	meta := map[string]string{
		metaShopState: string(stateJSON),
		metaCoins:     snap.Coins.String(),
		metaSavedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO shop_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("shop state saved",
		"day", snap.Shop.Day,
		"coins", snap.Coins.String(),
		"stock_lines", len(snap.Stock),
		"history", len(snap.Shop.History),
	)
	return nil
}

func saveStock(tx *sqlx.Tx, entries []economy.StockEntry) error {
	if _, err := tx.Exec("DELETE FROM stock"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO stock (ordinal, item_id, quantity, price, pos_x, pos_y)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(i, e.ItemID, e.Quantity, e.Price, e.Position.X, e.Position.Y); err != nil {
			return fmt.Errorf("insert stock %s: %w", e.ItemID, err)
		}
	}
	return nil
}

func saveInventory(tx *sqlx.Tx, entries []economy.InventoryEntry) error {
	if _, err := tx.Exec("DELETE FROM inventory"); err != nil {
		return err
	}
	for i, e := range entries {
		_, err := tx.Exec("INSERT INTO inventory (ordinal, item_id, quantity, price) VALUES (?, ?, ?, ?)",
			i, e.ItemID, e.Quantity, e.Price)
		if err != nil {
			return fmt.Errorf("insert inventory %s: %w", e.ItemID, err)
		}
	}
	return nil
}

func saveDecorations(tx *sqlx.Tx, owned []economy.OwnedDecoration) error {
	if _, err := tx.Exec("DELETE FROM decorations"); err != nil {
		return err
	}
	for i, d := range owned {
		active := 0
		if d.Active {
			active = 1
		}
		_, err := tx.Exec("INSERT INTO decorations (ordinal, decoration_id, active, pos_x, pos_y) VALUES (?, ?, ?, ?, ?)",
			i, d.ID, active, d.Position.X, d.Position.Y)
		if err != nil {
			return fmt.Errorf("insert decoration %s: %w", d.ID, err)
		}
	}
	return nil
}

func saveHistory(tx *sqlx.Tx, history []engine.DaySummary) error {
	if _, err := tx.Exec("DELETE FROM day_history"); err != nil {
		return err
	}
	for _, h := range history {
		_, err := tx.NamedExec(`INSERT INTO day_history
			(day, customers, sales, revenue, profit, reputation_before, reputation_after)
			VALUES (:day, :customers, :sales, :revenue, :profit, :reputation_before, :reputation_after)`, h)
		if err != nil {
			return fmt.Errorf("insert day %d: %w", h.Day, err)
		}
	}
	return nil
}

type stockRow struct {
	ItemID   string          `db:"item_id"`
	Quantity int             `db:"quantity"`
	Price    decimal.Decimal `db:"price"`
	X        float64         `db:"pos_x"`
	Y        float64         `db:"pos_y"`
}

type decorationRow struct {
	ID     string  `db:"decoration_id"`
	Active bool    `db:"active"`
	X      float64 `db:"pos_x"`
	Y      float64 `db:"pos_y"`
}

// Load reads the saved snapshot. Decorations missing from cat are dropped.
func (db *DB) Load(cat *catalog.Catalog) (Snapshot, error) {
	var snap Snapshot

	stateJSON, err := db.GetMeta(metaShopState)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNoSave
	}
	if err != nil {
		return snap, fmt.Errorf("load shop state: %w", err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &snap.Shop); err != nil {
		return snap, fmt.Errorf("decode shop state: %w", err)
	}

	coins, err := db.GetMeta(metaCoins)
	if err != nil {
		return snap, fmt.Errorf("load coins: %w", err)
	}
	if snap.Coins, err = decimal.NewFromString(coins); err != nil {
		return snap, fmt.Errorf("decode coins: %w", err)
	}

	var stock []stockRow
	if err := db.conn.Select(&stock, "SELECT item_id, quantity, price, pos_x, pos_y FROM stock ORDER BY ordinal"); err != nil {
		return snap, fmt.Errorf("load stock: %w", err)
	}
	for _, r := range stock {
		snap.Stock = append(snap.Stock, economy.StockEntry{
			ItemID:   r.ItemID,
			Quantity: r.Quantity,
			Price:    r.Price,
			Position: economy.Position{X: r.X, Y: r.Y},
		})
	}

	if err := db.conn.Select(&snap.Inventory, "SELECT item_id, quantity, price FROM inventory ORDER BY ordinal"); err != nil {
		return snap, fmt.Errorf("load inventory: %w", err)
	}

	var decor []decorationRow
	if err := db.conn.Select(&decor, "SELECT decoration_id, active, pos_x, pos_y FROM decorations ORDER BY ordinal"); err != nil {
		return snap, fmt.Errorf("load decorations: %w", err)
	}
	for _, r := range decor {
		def, ok := cat.Decoration(r.ID)
		if !ok {
			slog.Warn("dropping unknown saved decoration", "id", r.ID)
			continue
		}
		snap.Decorations = append(snap.Decorations, economy.OwnedDecoration{
			Decoration: def,
			Active:     r.Active,
			Position:   economy.Position{X: r.X, Y: r.Y},
		})
	}

	if snap.Shop.History, err = db.History(0); err != nil {
		return snap, err
	}
	return snap, nil
}

// History returns closed days oldest first. limit > 0 keeps only the most recent days.
func (db *DB) History(limit int) ([]engine.DaySummary, error) {
	var out []engine.DaySummary
	err := db.conn.Select(&out, `SELECT day, customers, sales, revenue, profit, reputation_before, reputation_after
		FROM day_history ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// SaveMeta stores a key-value pair in shop metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO shop_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM shop_meta WHERE key = ?", key)
	return value, err
}

// EventRecord is a persisted notification.
type EventRecord struct {
	ID         int64           `json:"id" db:"id"`
	Day        int             `json:"day" db:"day"`
	SimTime    string          `json:"sim_time" db:"sim_time"`
	Kind       string          `json:"kind" db:"kind"`
	CustomerID string          `json:"customer_id,omitempty" db:"customer_id"`
	ItemID     string          `json:"item_id,omitempty" db:"item_id"`
	Message    string          `json:"message" db:"message"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt  string          `json:"created_at" db:"created_at"`
}

// ErrEventLogClosed is returned by Emit after Close.
var ErrEventLogClosed = errors.New("event log closed")

// ErrEventLogFull is returned by Emit when the write buffer is full; the event is dropped.
var ErrEventLogFull = errors.New("event log buffer full")

// EventLog is a notify.Sink that appends notable notifications to the events
// table. Customer chatter (thoughts, arrivals, departures) is not stored.
// Emit only enqueues; a single writer goroutine performs the inserts.
type EventLog struct {
	db     *DB
	events chan notify.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewEventLog starts the writer with room for buffer pending events.
func NewEventLog(db *DB, buffer int) *EventLog {
	l := &EventLog{
		db:     db,
		events: make(chan notify.Event, max(buffer, 1)),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Emit implements notify.Sink. It never waits for the database.
func (l *EventLog) Emit(_ context.Context, e notify.Event) error {
	switch e.Kind {
	case notify.KindCustomerThought, notify.KindCustomerArrived, notify.KindCustomerLeft:
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrEventLogClosed
	}
	select {
	case l.events <- e:
		return nil
	default:
		return fmt.Errorf("log event %s: %w", e.Kind, ErrEventLogFull)
	}
}

// Close stops accepting events and waits for the queued ones to be written.
func (l *EventLog) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.events)
	l.mu.Unlock()
	<-l.done
	return nil
}

func (l *EventLog) run() {
	defer close(l.done)
	for e := range l.events {
		if err := l.db.insertEvent(e); err != nil {
			slog.Warn("event log write failed", "kind", e.Kind, "error", err)
		}
	}
}

func (db *DB) insertEvent(e notify.Event) error {
	_, err := db.conn.Exec(
		`INSERT INTO events (day, sim_time, kind, customer_id, item_id, message, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Day, e.SimTime, string(e.Kind), e.CustomerID, e.ItemID, e.Message, e.Amount,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.Kind, err)
	}
	return nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]EventRecord, error) {
	var events []EventRecord
	err := db.conn.Select(&events,
		`SELECT id, day, sim_time, kind, customer_id, item_id, message, amount, created_at
		FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	return events, err
}
