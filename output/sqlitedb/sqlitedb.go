package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tsinghua-fib-lab/gridtraffic-sim/entity"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		"rows" INTEGER NOT NULL,
		"cols" INTEGER NOT NULL,
		lights INTEGER NOT NULL,
		cars INTEGER NOT NULL,
		last_tick INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS light_states (
		run_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		light_id INTEGER NOT NULL,
		state TEXT NOT NULL,
		PRIMARY KEY (run_id, tick, light_id)
	);`,
	`CREATE TABLE IF NOT EXISTS car_states (
		run_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		car_id INTEGER NOT NULL,
		"row" INTEGER NOT NULL,
		col INTEGER NOT NULL,
		velocity INTEGER NOT NULL,
		path_len INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, car_id)
	);`,
}

// Store 逐步状态数据库
// 功能：实现output.Sink，把每一步的信号灯与车辆状态写入SQLite，便于离线分析
// 说明：每次运行在runs表中占一行，每帧在一个事务中写入
type Store struct {
	db    *sql.DB
	path  string
	runID int64
}

// Open 打开（或创建）数据库并建表
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty sqlite path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Name() string {
	return "sqlite"
}

// RunID 本次运行的编号，Init之前为0
func (s *Store) RunID() int64 {
	return s.runID
}

// Init 登记本次运行并写入初始状态
func (s *Store) Init(f *entity.Frame) error {
	cols := 0
	if len(f.Map) > 0 {
		cols = len(f.Map[0])
	}
	res, err := s.db.Exec(
		`INSERT INTO runs(started_at,"rows","cols",lights,cars,last_tick) VALUES(?,?,?,?,?,?)`,
		time.Now().UTC().Format(time.RFC3339), len(f.Map), cols, len(f.TrafficLights), len(f.Cars), f.Tick,
	)
	if err != nil {
		return err
	}
	if s.runID, err = res.LastInsertId(); err != nil {
		return err
	}
	log.Infof("sqlite run %d recorded in %s", s.runID, s.path)
	return s.Publish(f)
}

// Publish 在一个事务中写入一帧
func (s *Store) Publish(f *entity.Frame) error {
	if s.runID == 0 {
		return errors.New("sqlite store not initialized")
	}
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	lightStmt, err := tx.Prepare(`INSERT OR REPLACE INTO light_states(run_id,tick,light_id,state) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer lightStmt.Close()
	for _, l := range f.TrafficLights {
		if _, err := lightStmt.Exec(s.runID, f.Tick, l.ID, l.State.String()); err != nil {
			return fmt.Errorf("insert light %d: %w", l.ID, err)
		}
	}

	carStmt, err := tx.Prepare(`INSERT OR REPLACE INTO car_states(run_id,tick,car_id,"row",col,velocity,path_len) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer carStmt.Close()
	for _, c := range f.Cars {
		if _, err := carStmt.Exec(s.runID, f.Tick, c.ID, c.Position[0], c.Position[1], c.Velocity, c.PathLen); err != nil {
			return fmt.Errorf("insert car %d: %w", c.ID, err)
		}
	}

	if _, err := tx.Exec(`UPDATE runs SET last_tick=? WHERE id=?`, f.Tick, s.runID); err != nil {
		return err
	}
	return tx.Commit()
}

// Close 记录结束时间并关闭数据库
func (s *Store) Close() error {
	var err error
	if s.runID != 0 {
		_, err = s.db.Exec(`UPDATE runs SET finished_at=? WHERE id=?`, time.Now().UTC().Format(time.RFC3339), s.runID)
	}
	return errors.Join(err, s.db.Close())
}
