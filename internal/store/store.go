// Package store persists the launchpad ledger in SQLite through bun.
//
// Every launchpad mutation arrives as one checkpoint: the platform state,
// the touched project (whole), and a journal event. The checkpoint and the
// mutation's side effect run in a single transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/launchpad/internal/launchpad"
	"github.com/Mohsinsiddi/launchpad/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// Store is a bun-backed launchpad.Store.
type Store struct {
	db *bun.DB
}

// StateModel maps the single-row `ledger_state` table.
type StateModel struct {
	bun.BaseModel `bun:"table:ledger_state"`
	ID            int    `bun:"id,pk"`
	Admin         string `bun:"admin,notnull"`
	Paused        bool   `bun:"paused,notnull"`
	NextID        int64  `bun:"next_id,notnull"`
}

// ProjectModel maps the `projects` table. Amounts are decimal strings.
type ProjectModel struct {
	bun.BaseModel  `bun:"table:projects"`
	ID             int64     `bun:"id,pk"`
	Owner          string    `bun:"owner,notnull"`
	SaleAsset      string    `bun:"sale_asset,notnull"`
	TokenPrice     string    `bun:"token_price,notnull"`
	MinInvestment  string    `bun:"min_investment,notnull"`
	MaxInvestment  string    `bun:"max_investment,notnull"`
	MaxCap         string    `bun:"max_cap,notnull"`
	EndTime        int64     `bun:"end_time,notnull"`
	Status         int       `bun:"status,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	TotalRaised    string    `bun:"total_raised,notnull"`
	TotalAllocated string    `bun:"total_allocated,notnull"`
	TotalClaimed   string    `bun:"total_claimed,notnull"`
	Withdrawn      bool      `bun:"withdrawn,notnull"`
	Swept          bool      `bun:"swept,notnull"`
}

// WhitelistModel maps the `project_whitelist` table.
type WhitelistModel struct {
	bun.BaseModel `bun:"table:project_whitelist"`
	ProjectID     int64  `bun:"project_id,pk"`
	Investor      string `bun:"investor,pk"`
}

// PositionModel maps the `positions` table.
type PositionModel struct {
	bun.BaseModel `bun:"table:positions"`
	ProjectID     int64  `bun:"project_id,pk"`
	Investor      string `bun:"investor,pk"`
	Invested      string `bun:"invested,notnull"`
	Allocated     string `bun:"allocated,notnull"`
	Claimed       string `bun:"claimed,notnull"`
}

// EventModel maps the `events` journal, an audit log of committed
// mutations.
type EventModel struct {
	bun.BaseModel `bun:"table:events"`
	Seq           int64     `bun:"seq,pk,autoincrement"`
	Action        string    `bun:"action,notnull"`
	ProjectID     int64     `bun:"project_id,notnull"`
	Actor         string    `bun:"actor,notnull"`
	Details       string    `bun:"details,notnull"`
	At            time.Time `bun:"at,notnull"`
}

var models = []any{
	(*StateModel)(nil),
	(*ProjectModel)(nil),
	(*WhitelistModel)(nil),
	(*PositionModel)(nil),
	(*EventModel)(nil),
	(*BalanceModel)(nil),
}

// Open opens (creating if needed) the SQLite database at dsn and ensures
// the schema exists. ":memory:" gives a private throwaway database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	start := time.Now()
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting per connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	logging.Debugf("store: opened %s in %s", dsn, time.Since(start))
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *bun.DB) error {
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load restores the ledger. A database that has never been committed to
// returns a nil state.
func (s *Store) Load(ctx context.Context) (*launchpad.State, []*launchpad.Project, error) {
	var st StateModel
	err := s.db.NewSelect().Model(&st).Where("id = 1").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading ledger state: %w", err)
	}
	state := &launchpad.State{
		Admin:  common.HexToAddress(st.Admin),
		Paused: st.Paused,
		NextID: uint64(st.NextID),
	}

	var rows []ProjectModel
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, nil, fmt.Errorf("reading projects: %w", err)
	}
	projects := make([]*launchpad.Project, 0, len(rows))
	byID := make(map[int64]*launchpad.Project, len(rows))
	for _, r := range rows {
		p, err := projectFromModel(r)
		if err != nil {
			return nil, nil, err
		}
		projects = append(projects, p)
		byID[r.ID] = p
	}

	var wl []WhitelistModel
	if err := s.db.NewSelect().Model(&wl).Scan(ctx); err != nil {
		return nil, nil, fmt.Errorf("reading whitelist: %w", err)
	}
	for _, w := range wl {
		if p, ok := byID[w.ProjectID]; ok {
			p.Whitelist[common.HexToAddress(w.Investor)] = struct{}{}
		}
	}

	var pos []PositionModel
	if err := s.db.NewSelect().Model(&pos).Scan(ctx); err != nil {
		return nil, nil, fmt.Errorf("reading positions: %w", err)
	}
	for _, m := range pos {
		p, ok := byID[m.ProjectID]
		if !ok {
			continue
		}
		position, err := positionFromModel(m)
		if err != nil {
			return nil, nil, err
		}
		p.Positions[common.HexToAddress(m.Investor)] = position
	}

	for i, p := range projects {
		if p.ID != uint64(i+1) {
			return nil, nil, fmt.Errorf("project ids are not contiguous: found %d at position %d", p.ID, i+1)
		}
	}
	return state, projects, nil
}

// Commit writes cp and runs effect in one transaction. The transaction is
// placed in the context effect receives, so balance moves on this store
// join it.
func (s *Store) Commit(ctx context.Context, cp launchpad.Checkpoint, effect func(context.Context) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := writeState(ctx, tx, cp.State); err != nil {
			return err
		}
		if cp.Project != nil {
			if err := writeProject(ctx, tx, cp.Project); err != nil {
				return err
			}
		}
		ev := EventModel{
			Action:    cp.Event.Action,
			ProjectID: int64(cp.Event.ProjectID),
			Actor:     cp.Event.Actor.Hex(),
			Details:   cp.Event.Details,
			At:        cp.Event.At.UTC(),
		}
		if _, err := tx.NewInsert().Model(&ev).Exec(ctx); err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
		return effect(withTx(ctx, tx))
	})
}

// Events returns up to limit journal entries, newest first. limit <= 0
// returns all of them.
func (s *Store) Events(ctx context.Context, limit int) ([]launchpad.Event, error) {
	var rows []EventModel
	q := s.db.NewSelect().Model(&rows).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	out := make([]launchpad.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, launchpad.Event{
			Seq:       uint64(r.Seq),
			Action:    r.Action,
			ProjectID: uint64(r.ProjectID),
			Actor:     common.HexToAddress(r.Actor),
			Details:   r.Details,
			At:        r.At,
		})
	}
	return out, nil
}

func writeState(ctx context.Context, tx bun.Tx, st launchpad.State) error {
	m := StateModel{ID: 1, Admin: st.Admin.Hex(), Paused: st.Paused, NextID: int64(st.NextID)}
	_, err := tx.NewInsert().Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("admin = EXCLUDED.admin").
		Set("paused = EXCLUDED.paused").
		Set("next_id = EXCLUDED.next_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write ledger state: %w", err)
	}
	return nil
}

// writeProject replaces every row belonging to p.
func writeProject(ctx context.Context, tx bun.Tx, p *launchpad.Project) error {
	id := int64(p.ID)
	if _, err := tx.NewDelete().Model((*ProjectModel)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace project %d: %w", p.ID, err)
	}
	if _, err := tx.NewDelete().Model((*WhitelistModel)(nil)).Where("project_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace whitelist of %d: %w", p.ID, err)
	}
	if _, err := tx.NewDelete().Model((*PositionModel)(nil)).Where("project_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace positions of %d: %w", p.ID, err)
	}

	row := projectToModel(p)
	if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert project %d: %w", p.ID, err)
	}

	if len(p.Whitelist) > 0 {
		wl := make([]WhitelistModel, 0, len(p.Whitelist))
		for _, a := range p.WhitelistSorted() {
			wl = append(wl, WhitelistModel{ProjectID: id, Investor: a.Hex()})
		}
		if _, err := tx.NewInsert().Model(&wl).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert whitelist of %d: %w", p.ID, err)
		}
	}

	if len(p.Positions) > 0 {
		pos := make([]PositionModel, 0, len(p.Positions))
		for a, v := range p.Positions {
			pos = append(pos, PositionModel{
				ProjectID: id,
				Investor:  a.Hex(),
				Invested:  v.Invested.String(),
				Allocated: v.Allocated.String(),
				Claimed:   v.Claimed.String(),
			})
		}
		if _, err := tx.NewInsert().Model(&pos).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert positions of %d: %w", p.ID, err)
		}
	}
	return nil
}

func projectToModel(p *launchpad.Project) ProjectModel {
	return ProjectModel{
		ID:             int64(p.ID),
		Owner:          p.Owner.Hex(),
		SaleAsset:      p.SaleAsset.Hex(),
		TokenPrice:     p.TokenPrice.String(),
		MinInvestment:  p.MinInvestment.String(),
		MaxInvestment:  p.MaxInvestment.String(),
		MaxCap:         p.MaxCap.String(),
		EndTime:        int64(p.EndTime),
		Status:         int(p.Status),
		CreatedAt:      p.CreatedAt.UTC(),
		TotalRaised:    p.TotalRaised.String(),
		TotalAllocated: p.TotalAllocated.String(),
		TotalClaimed:   p.TotalClaimed.String(),
		Withdrawn:      p.Withdrawn,
		Swept:          p.Swept,
	}
}

func projectFromModel(m ProjectModel) (*launchpad.Project, error) {
	p := &launchpad.Project{
		ID:        uint64(m.ID),
		Owner:     common.HexToAddress(m.Owner),
		SaleAsset: common.HexToAddress(m.SaleAsset),
		EndTime:   uint64(m.EndTime),
		Status:    launchpad.Status(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
		Withdrawn: m.Withdrawn,
		Swept:     m.Swept,
		Whitelist: make(map[common.Address]struct{}),
		Positions: make(map[common.Address]*launchpad.Position),
	}
	fields := []struct {
		dst **big.Int
		col string
		val string
	}{
		{&p.TokenPrice, "token_price", m.TokenPrice},
		{&p.MinInvestment, "min_investment", m.MinInvestment},
		{&p.MaxInvestment, "max_investment", m.MaxInvestment},
		{&p.MaxCap, "max_cap", m.MaxCap},
		{&p.TotalRaised, "total_raised", m.TotalRaised},
		{&p.TotalAllocated, "total_allocated", m.TotalAllocated},
		{&p.TotalClaimed, "total_claimed", m.TotalClaimed},
	}
	for _, f := range fields {
		n, err := parseAmount(f.val)
		if err != nil {
			return nil, fmt.Errorf("project %d %s: %w", m.ID, f.col, err)
		}
		*f.dst = n
	}
	return p, nil
}

func positionFromModel(m PositionModel) (*launchpad.Position, error) {
	var (
		pos launchpad.Position
		err error
	)
	if pos.Invested, err = parseAmount(m.Invested); err != nil {
		return nil, fmt.Errorf("position %d/%s invested: %w", m.ProjectID, m.Investor, err)
	}
	if pos.Allocated, err = parseAmount(m.Allocated); err != nil {
		return nil, fmt.Errorf("position %d/%s allocated: %w", m.ProjectID, m.Investor, err)
	}
	if pos.Claimed, err = parseAmount(m.Claimed); err != nil {
		return nil, fmt.Errorf("position %d/%s claimed: %w", m.ProjectID, m.Investor, err)
	}
	return &pos, nil
}

func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

// --- transaction propagation ---

type txKey struct{}

func withTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// conn returns the transaction carried by ctx, or the database.
func (s *Store) conn(ctx context.Context) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return s.db
}
