// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "logdb")

type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (*LogDB, error) {
	return open(path, path+"?_journal_mode=WAL", 0)
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	// each connection of an in-memory database sees its own database
	return open(":memory:", ":memory:", 1)
}

func open(path, dsn string, maxConns int) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	db.SetMaxOpenConns(maxConns)

	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("log db opened", "path", path, "sqlite", driverVer)
	return &LogDB{
		path,
		db,
		driverVer,
	}, nil
}

// Close close the log db.
func (db *LogDB) Close() error {
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// NewestStep returns the step of the last written event, or false if the journal is empty.
func (db *LogDB) NewestStep() (uint32, bool, error) {
	var seq sql.NullInt64
	if err := db.db.QueryRow("SELECT MAX(seq) FROM event").Scan(&seq); err != nil {
		return 0, false, err
	}
	if !seq.Valid {
		return 0, false, nil
	}
	return sequence(seq.Int64).Step(), true, nil
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	if filter == nil {
		return db.queryEvents(ctx, "SELECT seq, time, address, topic0, topic1, topic2, topic3, data FROM event ORDER BY seq ASC")
	}
	metricsHandleEventsFilter(filter)

	var args []any
	stmt := "SELECT seq, time, address, topic0, topic1, topic2, topic3, data FROM event WHERE 1"
	if filter.Range != nil {
		if filter.Range.Unit == Time {
			args = append(args, filter.Range.From)
			stmt += " AND time >= ? "
			if filter.Range.To >= filter.Range.From {
				args = append(args, filter.Range.To)
				stmt += " AND time <= ? "
			}
		} else {
			if filter.Range.From > math.MaxUint32 {
				return nil, nil
			}
			args = append(args, int64(newSequence(uint32(filter.Range.From), 0)))
			stmt += " AND seq >= ? "
			if filter.Range.To >= filter.Range.From {
				to := filter.Range.To
				if to > math.MaxUint32 {
					to = math.MaxUint32
				}
				args = append(args, int64(newSequence(uint32(to), math.MaxInt32)))
				stmt += " AND seq <= ? "
			}
		}
	}
	for i, criteria := range filter.CriteriaSet {
		if i == 0 {
			stmt += " AND (( 1"
		} else {
			stmt += " OR ( 1"
		}
		if criteria.Address != nil {
			args = append(args, criteria.Address.Bytes())
			stmt += " AND address = ? "
		}
		for j, topic := range criteria.Topics {
			if topic != nil {
				args = append(args, topic.Bytes())
				stmt += fmt.Sprintf(" AND topic%v = ?", j)
			}
		}
		stmt += ")"
		if i == len(filter.CriteriaSet)-1 {
			stmt += ")"
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq     int64
			time    uint64
			address []byte
			topics  [4][]byte
			data    []byte
		)
		if err := rows.Scan(
			&seq,
			&time,
			&address,
			&topics[0],
			&topics[1],
			&topics[2],
			&topics[3],
			&data,
		); err != nil {
			return nil, err
		}
		event := &Event{
			Step:    sequence(seq).Step(),
			Index:   sequence(seq).Index(),
			Time:    time,
			Address: thor.BytesToAddress(address),
			Data:    data,
		}
		for i, topic := range topics {
			if len(topic) > 0 {
				h := thor.BytesToBytes32(topic)
				event.Topics[i] = &h
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func topicValue(topics []thor.Bytes32, i int) []byte {
	if i < len(topics) {
		return topics[i].Bytes()
	}
	return nil
}

// NewWriter creates a log writer.
func (db *LogDB) NewWriter() *Writer {
	return &Writer{db: db.db}
}

// Writer accumulates events of consecutive steps and writes them in one transaction.
type Writer struct {
	db          *sql.DB
	tx          *sql.Tx
	uncommitted int
}

// Write appends the logs emitted by the given step.
func (w *Writer) Write(step uint32, time uint64, logs []*state.Log) error {
	if len(logs) == 0 {
		return nil
	}
	if w.tx == nil {
		tx, err := w.db.Begin()
		if err != nil {
			return err
		}
		w.tx = tx
	}
	for i, l := range logs {
		if len(l.Topics) > 4 {
			return errors.Errorf("too many topics: %d", len(l.Topics))
		}
		if _, err := w.tx.Exec("INSERT OR REPLACE INTO event(seq, time, address, topic0, topic1, topic2, topic3, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			int64(newSequence(step, uint32(i))),
			time,
			l.Address.Bytes(),
			topicValue(l.Topics, 0),
			topicValue(l.Topics, 1),
			topicValue(l.Topics, 2),
			topicValue(l.Topics, 3),
			l.Data,
		); err != nil {
			return err
		}
		w.uncommitted++
	}
	return nil
}

// Commit commits accumulated logs.
func (w *Writer) Commit() error {
	if w.tx == nil {
		return nil
	}
	defer func() {
		w.tx = nil
		w.uncommitted = 0
	}()
	if err := w.tx.Commit(); err != nil {
		return errors.Wrap(err, "commit events")
	}
	metricEventsWritten().Add(int64(w.uncommitted))
	return nil
}

// Rollback rollbacks all uncommitted logs.
func (w *Writer) Rollback() error {
	if w.tx == nil {
		return nil
	}
	defer func() {
		w.tx = nil
		w.uncommitted = 0
	}()
	return w.tx.Rollback()
}

// UncommittedCount returns the count of uncommitted logs.
func (w *Writer) UncommittedCount() int {
	return w.uncommitted
}
