package ledger

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

const csvHeader = "investmentName,investmentType,amount,value,timestamp"

// CSVRepository keeps one comma-delimited record file per user identity
// under a data directory. The layout is fixed: a header row, then one row
// per snapshot in append order. Fields are never escaped, so investment
// names must not contain the delimiter (enforced at validation time).
type CSVRepository struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCSVRepository creates the data directory if needed and returns a
// repository over it.
func NewCSVRepository(dir string) (*CSVRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &CSVRepository{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// userLock returns the mutex serializing writes for one user's file.
func (r *CSVRepository) userLock(userID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

func (r *CSVRepository) path(userID string) string {
	// User IDs come from the identity provider; escape so they are always
	// safe as a file name.
	return filepath.Join(r.dir, url.PathEscape(userID)+".csv")
}

func (r *CSVRepository) Append(_ context.Context, userID string, s domain.Snapshot) error {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	path := r.path(userID)
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger for %s: %w", userID, err)
	}
	defer f.Close()

	if os.IsNotExist(statErr) {
		if _, err := fmt.Fprintln(f, csvHeader); err != nil {
			return fmt.Errorf("writing ledger header: %w", err)
		}
	}

	line := strings.Join([]string{
		s.InvestmentName,
		string(s.InvestmentType),
		s.Amount.String(),
		s.Value.String(),
		s.Timestamp.UTC().Format(time.RFC3339Nano),
	}, domain.Delimiter)
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("appending snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing ledger: %w", err)
	}
	return nil
}

func (r *CSVRepository) List(_ context.Context, userID string) ([]domain.Snapshot, error) {
	f, err := os.Open(r.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger for %s: %w", userID, err)
	}
	defer f.Close()

	var snapshots []domain.Snapshot
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			continue // header
		}
		if line == "" {
			continue
		}
		s, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("ledger for %s: %w", userID, err)
		}
		snapshots = append(snapshots, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger for %s: %w", userID, err)
	}
	return snapshots, nil
}

func (r *CSVRepository) Users(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	var users []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".csv"))
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}

func parseRecord(line string) (domain.Snapshot, error) {
	fields := strings.Split(line, domain.Delimiter)
	if len(fields) != 5 {
		return domain.Snapshot{}, fmt.Errorf("malformed record %q", line)
	}
	typ, err := domain.ParseType(fields[1])
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("record %q: %w", line, err)
	}
	amount, err := decimal.NewFromString(fields[2])
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("record %q: parsing amount: %w", line, err)
	}
	value, err := decimal.NewFromString(fields[3])
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("record %q: parsing value: %w", line, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, fields[4])
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("record %q: parsing timestamp: %w", line, err)
	}
	return domain.Snapshot{
		InvestmentName: fields[0],
		InvestmentType: typ,
		Amount:         amount,
		Value:          value,
		Timestamp:      ts,
	}, nil
}
