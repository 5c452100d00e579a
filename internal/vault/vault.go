// Package vault is the credential vault: the single source of truth for
// the active session, the offline PIN hash, user preferences, shift
// status, and the durable delivery-lifecycle sets. State is sealed at
// rest with an age x25519 device key and rewritten atomically on every
// mutation, so it survives restarts and never touches disk in plaintext.
package vault

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/unilove/ridersync/internal/feed"
	"github.com/unilove/ridersync/internal/model"
)

const (
	vaultFile = "vault.age"
	keyFile   = "device.key"

	// pinSalt is the fixed device-class salt mixed into the offline PIN
	// hash. Changing it invalidates every stored offline credential.
	pinSalt = "unilove_rider_offline"
)

// state is the persisted vault payload (JSON before sealing).
type state struct {
	Session          *model.Session       `json:"session,omitempty"`
	PINHash          string               `json:"pin_hash,omitempty"`
	Theme            model.ThemeMode      `json:"theme"`
	Ringtone         model.RingtoneOption `json:"ringtone"`
	NotificationTone string               `json:"notification_tone,omitempty"`
	Shift            model.ShiftStatus    `json:"shift"`
	StartedOrderIDs  []string             `json:"started_order_ids,omitempty"`
	ArrivedOrderIDs  []string             `json:"arrived_order_ids,omitempty"`
}

func defaultState() state {
	return state{
		Theme:    model.ThemeSystem,
		Ringtone: model.RingtonePremiumChime,
		Shift:    model.ShiftOffline,
	}
}

// Vault owns the sealed credential file and the feeds over its contents.
// All mutations are serialized; reads go through snapshots.
type Vault struct {
	mu   sync.Mutex
	dir  string
	box  *sealbox
	data state

	sessionFeed  *feed.Feed[*model.Session]
	shiftFeed    *feed.Feed[model.ShiftStatus]
	themeFeed    *feed.Feed[model.ThemeMode]
	ringtoneFeed *feed.Feed[model.RingtoneOption]
	toneFeed     *feed.Feed[string]
	startedFeed  *feed.Feed[map[string]struct{}]
	arrivedFeed  *feed.Feed[map[string]struct{}]
}

// Open loads (or initializes) the vault in the given directory. A device
// key is generated on first use; an existing sealed file is decrypted
// with it.
func Open(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	box, err := openSealbox(filepath.Join(dir, keyFile))
	if err != nil {
		return nil, err
	}

	data := defaultState()
	path := filepath.Join(dir, vaultFile)
	if raw, err := os.ReadFile(path); err == nil {
		plain, err := box.open(raw)
		if err != nil {
			return nil, fmt.Errorf("unseal vault: %w", err)
		}
		if err := json.Unmarshal(plain, &data); err != nil {
			return nil, fmt.Errorf("decode vault: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read vault: %w", err)
	}

	v := &Vault{
		dir:          dir,
		box:          box,
		data:         data,
		sessionFeed:  feed.New(copySession(data.Session)),
		shiftFeed:    feed.New(data.Shift),
		themeFeed:    feed.New(data.Theme),
		ringtoneFeed: feed.New(data.Ringtone),
		toneFeed:     feed.New(data.NotificationTone),
		startedFeed:  feed.New(toSet(data.StartedOrderIDs)),
		arrivedFeed:  feed.New(toSet(data.ArrivedOrderIDs)),
	}
	return v, nil
}

// mutate applies fn to a copy of the state, seals it to disk, then
// publishes the new snapshots. The write is atomic (temp file + rename):
// a crash mid-write leaves the previous vault intact.
func (v *Vault) mutate(fn func(*state)) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := v.data
	next.StartedOrderIDs = append([]string(nil), v.data.StartedOrderIDs...)
	next.ArrivedOrderIDs = append([]string(nil), v.data.ArrivedOrderIDs...)
	fn(&next)

	plain, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	sealed, err := v.box.seal(plain)
	if err != nil {
		return err
	}

	path := filepath.Join(v.dir, vaultFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace vault: %w", err)
	}

	v.data = next
	v.sessionFeed.Publish(copySession(next.Session))
	v.shiftFeed.Publish(next.Shift)
	v.themeFeed.Publish(next.Theme)
	v.ringtoneFeed.Publish(next.Ringtone)
	v.toneFeed.Publish(next.NotificationTone)
	v.startedFeed.Publish(toSet(next.StartedOrderIDs))
	v.arrivedFeed.Publish(toSet(next.ArrivedOrderIDs))
	return nil
}

// Session returns the active session, or nil when none exists.
func (v *Vault) Session() *model.Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return copySession(v.data.Session)
}

// SaveSession stores a new active session.
func (v *Vault) SaveSession(s model.Session) error {
	return v.mutate(func(st *state) {
		saved := s
		st.Session = &saved
	})
}

// WatchSession subscribes to session changes. The channel carries nil
// when no session is active.
func (v *Vault) WatchSession(ctx context.Context) <-chan *model.Session {
	return v.sessionFeed.Subscribe(ctx)
}

// SaveOfflinePIN stores a fresh salted hash of the rider's PIN. Called
// only after a successful online STAFF login with non-blank credentials;
// guest sessions never reach here.
func (v *Vault) SaveOfflinePIN(riderID, pin string) error {
	return v.mutate(func(st *state) {
		st.PINHash = hashPIN(riderID, pin)
	})
}

// VerifyOfflinePIN validates a PIN attempt against the stored hash.
// The rider id must match the cached session's rider id
// (case-insensitively) and the recomputed hash must equal the stored one.
// The comparison is constant-time.
func (v *Vault) VerifyOfflinePIN(riderID, pin string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.data.Session == nil || v.data.PINHash == "" {
		return false
	}
	stored := v.data.Session.RiderID
	if !strings.EqualFold(strings.TrimSpace(riderID), strings.TrimSpace(stored)) {
		return false
	}
	attempt := hashPIN(stored, pin)
	return subtle.ConstantTimeCompare([]byte(attempt), []byte(v.data.PINHash)) == 1
}

// Clear drops the session, the offline credential, and the lifecycle
// sets. Preferences (theme, ringtone, notification tone) survive; shift
// resets to OFFLINE.
func (v *Vault) Clear() error {
	return v.mutate(func(st *state) {
		st.Session = nil
		st.PINHash = ""
		st.Shift = model.ShiftOffline
		st.StartedOrderIDs = nil
		st.ArrivedOrderIDs = nil
	})
}

// ShiftStatus returns the persisted shift status.
func (v *Vault) ShiftStatus() model.ShiftStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data.Shift
}

// SaveShiftStatus persists the rider-declared availability.
func (v *Vault) SaveShiftStatus(s model.ShiftStatus) error {
	return v.mutate(func(st *state) { st.Shift = s })
}

// WatchShiftStatus subscribes to shift changes.
func (v *Vault) WatchShiftStatus(ctx context.Context) <-chan model.ShiftStatus {
	return v.shiftFeed.Subscribe(ctx)
}

// Theme returns the persisted theme preference.
func (v *Vault) Theme() model.ThemeMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data.Theme
}

// SaveTheme persists the theme preference.
func (v *Vault) SaveTheme(m model.ThemeMode) error {
	return v.mutate(func(st *state) { st.Theme = m })
}

// WatchTheme subscribes to theme changes.
func (v *Vault) WatchTheme(ctx context.Context) <-chan model.ThemeMode {
	return v.themeFeed.Subscribe(ctx)
}

// Ringtone returns the persisted ringtone preference.
func (v *Vault) Ringtone() model.RingtoneOption {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data.Ringtone
}

// SaveRingtone persists the ringtone preference.
func (v *Vault) SaveRingtone(r model.RingtoneOption) error {
	return v.mutate(func(st *state) { st.Ringtone = r })
}

// WatchRingtone subscribes to ringtone changes.
func (v *Vault) WatchRingtone(ctx context.Context) <-chan model.RingtoneOption {
	return v.ringtoneFeed.Subscribe(ctx)
}

// NotificationTone returns the persisted notification tone, empty when unset.
func (v *Vault) NotificationTone() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data.NotificationTone
}

// SaveNotificationTone persists the notification tone reference.
func (v *Vault) SaveNotificationTone(uri string) error {
	return v.mutate(func(st *state) { st.NotificationTone = strings.TrimSpace(uri) })
}

// WatchNotificationTone subscribes to notification tone changes.
func (v *Vault) WatchNotificationTone(ctx context.Context) <-chan string {
	return v.toneFeed.Subscribe(ctx)
}

// StartedOrderIDs returns the durable set of started deliveries.
func (v *Vault) StartedOrderIDs() map[string]struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return toSet(v.data.StartedOrderIDs)
}

// ArrivedOrderIDs returns the durable set of arrived deliveries.
func (v *Vault) ArrivedOrderIDs() map[string]struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return toSet(v.data.ArrivedOrderIDs)
}

// SaveDeliveryState persists both lifecycle sets in one write. Blank ids
// are dropped; order is normalized for deterministic storage.
func (v *Vault) SaveDeliveryState(started, arrived map[string]struct{}) error {
	return v.mutate(func(st *state) {
		st.StartedOrderIDs = toSorted(started)
		st.ArrivedOrderIDs = toSorted(arrived)
	})
}

// WatchStartedOrderIDs subscribes to the started set.
func (v *Vault) WatchStartedOrderIDs(ctx context.Context) <-chan map[string]struct{} {
	return v.startedFeed.Subscribe(ctx)
}

// WatchArrivedOrderIDs subscribes to the arrived set.
func (v *Vault) WatchArrivedOrderIDs(ctx context.Context) <-chan map[string]struct{} {
	return v.arrivedFeed.Subscribe(ctx)
}

// hashPIN derives the stored offline credential. One-way, deterministic,
// salted with the device-class constant. Never logged.
func hashPIN(riderID, pin string) string {
	value := strings.ToLower(strings.TrimSpace(riderID)) + "::" + strings.TrimSpace(pin) + "::" + pinSalt
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func copySession(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func toSorted(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		if strings.TrimSpace(id) == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
