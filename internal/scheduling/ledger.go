package scheduling

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/carewell/scheduling-agent/internal/schedule"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

// Ledger is the durable appointment collection. The whole file is rewritten
// on every mutation; a single mutex serializes readers and writers so a
// check-then-append booking sequence cannot interleave with another writer.
type Ledger struct {
	path   string
	logger *logging.Logger

	mu      sync.RWMutex
	records []Appointment
	seq     int
}

// NewLedger loads the ledger from path, starting empty when the file does
// not exist. The booking-id counter is seeded from the highest numeric
// suffix already present so restarts never reissue an id.
func NewLedger(path string, logger *logging.Logger) (*Ledger, error) {
	if logger == nil {
		logger = logging.Default()
	}
	l := &Ledger{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("ledger file absent, starting empty", "path", path)
			return l, nil
		}
		return nil, fmt.Errorf("scheduling: read ledger %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &l.records); err != nil {
			return nil, fmt.Errorf("scheduling: parse ledger %s: %w", path, err)
		}
	}
	l.seq = maxSequence(l.records)
	logger.Info("ledger loaded", "path", path, "records", len(l.records), "next_seq", l.seq+1)
	return l, nil
}

func maxSequence(records []Appointment) int {
	max := 0
	for _, a := range records {
		parts := strings.Split(a.BookingID, "-")
		if len(parts) < 3 {
			continue
		}
		if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil && n > max {
			max = n
		}
	}
	return max
}

// NextBookingID issues the next booking identifier, e.g. "APPT-202608-0007".
// The prefix namespaces provenance ("APPT" for local bookings, "CAL" for
// bookings placed with the real provider).
func (l *Ledger) NextBookingID(prefix string, now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	return fmt.Sprintf("%s-%s-%04d", prefix, now.Format("200601"), l.seq)
}

// NewConfirmationCode returns a 6-character uppercase alphanumeric code.
func NewConfirmationCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("scheduling: confirmation code: %v", err))
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

// Append adds a record and persists.
func (l *Ledger) Append(a Appointment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, a)
	if err := l.persistLocked(); err != nil {
		l.records = l.records[:len(l.records)-1]
		return err
	}
	return nil
}

// Update applies fn to the record with the given booking id and persists.
// If fn returns an error the record is left unchanged.
func (l *Ledger) Update(bookingID string, fn func(*Appointment) error) (*Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].BookingID != bookingID {
			continue
		}
		prev := l.records[i]
		if err := fn(&l.records[i]); err != nil {
			l.records[i] = prev
			return nil, err
		}
		if err := l.persistLocked(); err != nil {
			l.records[i] = prev
			return nil, err
		}
		out := l.records[i]
		return &out, nil
	}
	return nil, ErrNotFound
}

// Remove permanently deletes a record and persists. Irreversible.
func (l *Ledger) Remove(bookingID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].BookingID != bookingID {
			continue
		}
		prev := l.records
		next := make([]Appointment, 0, len(prev)-1)
		next = append(next, prev[:i]...)
		next = append(next, prev[i+1:]...)
		l.records = next
		if err := l.persistLocked(); err != nil {
			l.records = prev
			return err
		}
		return nil
	}
	return ErrNotFound
}

// Get returns a copy of the record with the given booking id.
func (l *Ledger) Get(bookingID string) (*Appointment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.records {
		if l.records[i].BookingID == bookingID {
			out := l.records[i]
			return &out, true
		}
	}
	return nil, false
}

// GetByConfirmation looks up by confirmation code, case-insensitively.
func (l *Ledger) GetByConfirmation(code string) (*Appointment, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.records {
		if strings.ToUpper(l.records[i].ConfirmationCode) == code {
			out := l.records[i]
			return &out, true
		}
	}
	return nil, false
}

// List returns copies of records matching the filter, in ledger order.
func (l *Ledger) List(f ListFilter) []Appointment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Appointment, 0, len(l.records))
	for _, a := range l.records {
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.AppointmentType != "" && a.AppointmentType != f.AppointmentType {
			continue
		}
		if f.PatientEmail != "" && !strings.EqualFold(a.Patient.Email, f.PatientEmail) {
			continue
		}
		if f.PatientPhone != "" && a.Patient.Phone != f.PatientPhone {
			continue
		}
		out = append(out, a)
	}
	return out
}

// OccupiedAt reports whether any active appointment on date contains the
// checkpoint t (half-open containment, start <= t < end). excludeID removes
// the record under mutation from its own conflict set during reschedules.
func (l *Ledger) OccupiedAt(date string, t schedule.Clock, excludeID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.records {
		a := &l.records[i]
		if !a.Active() || a.Date != date || a.BookingID == excludeID {
			continue
		}
		if a.StartTime <= t && t < a.EndTime {
			return true
		}
	}
	return false
}

// Stats summarizes the ledger relative to today.
func (l *Ledger) Stats(today string) Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Stats{ByType: make(map[string]int)}
	for _, a := range l.records {
		s.Total++
		s.ByType[a.AppointmentType]++
		if a.Status == StatusCancelled {
			s.Cancelled++
			continue
		}
		s.Confirmed++
		if a.Date >= today {
			s.Upcoming++
		}
	}
	return s
}

// persistLocked rewrites the whole file via a temp file and rename so a
// crash mid-write never truncates the ledger. Caller holds l.mu.
func (l *Ledger) persistLocked() error {
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return fmt.Errorf("scheduling: marshal ledger: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("scheduling: ledger dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".appointments-*.json")
	if err != nil {
		return fmt.Errorf("scheduling: ledger temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("scheduling: write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("scheduling: close ledger temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("scheduling: replace ledger: %w", err)
	}
	return nil
}
