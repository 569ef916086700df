package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet types.
const (
	TypeWatchOnly = "watch-only"
	TypeSigning   = "signing"
)

// Errors.
var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidAddress = errors.New("invalid address")
)

// Wallet holds metadata for a single identity. Signing wallets keep their
// key in a Backend; only the reference is stored here.
type Wallet struct {
	Name      string         `json:"name"`
	Address   common.Address `json:"address"`
	Type      string         `json:"type"`
	KeyRef    string         `json:"key_ref,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// Store is an interface for persisting wallets.
type Store interface {
	Load() ([]*Wallet, error)
	Save([]*Wallet) error
}

// Manager handles wallet CRUD.
type Manager struct {
	mu      sync.Mutex
	store   Store
	keys    Backend
	wallets map[string]*Wallet
	loaded  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets a custom store.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithKeystore sets where signing keys are kept.
func WithKeystore(b Backend) Option {
	return func(m *Manager) { m.keys = b }
}

// NewManager creates a new wallet manager. Without options it keeps
// everything in memory.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		wallets: make(map[string]*Wallet),
		store:   &memStore{},
		keys:    NewInMemoryKeystore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddWatch registers a watch-only wallet for addr.
func (m *Manager) AddWatch(name string, addr common.Address) (*Wallet, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return m.add(&Wallet{Name: name, Address: addr, Type: TypeWatchOnly})
}

// AddWithKey derives the address from a hex private key, stores the key in
// the keystore, and registers a signing wallet.
func (m *Manager) AddWithKey(name, hexKey string) (*Wallet, error) {
	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	m.mu.Lock()
	exists, err := m.has(name)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrWalletExists
	}

	ref, err := m.keys.Store(name, hexKey)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}
	return m.add(&Wallet{
		Name:    name,
		Address: crypto.PubkeyToAddress(privKey.PublicKey),
		Type:    TypeSigning,
		KeyRef:  ref,
	})
}

func (m *Manager) add(w *Wallet) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exists, err := m.has(w.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrWalletExists
	}
	if w.CreatedAt == "" {
		w.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.wallets[w.Name] = w
	if err := m.persist(); err != nil {
		delete(m.wallets, w.Name)
		return nil, err
	}
	return w, nil
}

// Get returns a wallet by name.
func (m *Manager) Get(name string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return nil, err
	}
	w, ok := m.wallets[name]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// Remove deletes a wallet and its stored key.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return err
	}
	w, ok := m.wallets[name]
	if !ok {
		return ErrWalletNotFound
	}
	if w.KeyRef != "" {
		if err := m.keys.Delete(w.KeyRef); err != nil {
			return fmt.Errorf("deleting key: %w", err)
		}
	}
	delete(m.wallets, name)
	return m.persist()
}

// List returns all wallets sorted by name.
func (m *Manager) List() ([]*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Resolve turns a wallet name or a hex address into an address.
func (m *Manager) Resolve(nameOrAddr string) (common.Address, error) {
	if common.IsHexAddress(nameOrAddr) {
		return common.HexToAddress(nameOrAddr), nil
	}
	w, err := m.Get(nameOrAddr)
	if err != nil {
		return common.Address{}, fmt.Errorf("%q: %w", nameOrAddr, err)
	}
	return w.Address, nil
}

// Signer returns a transaction signer for the named wallet.
func (m *Manager) Signer(name string) (*Signer, error) {
	w, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return NewSigner(w, m.keys), nil
}

// --- internal ---

func (m *Manager) has(name string) (bool, error) {
	if err := m.load(); err != nil {
		return false, err
	}
	_, ok := m.wallets[name]
	return ok, nil
}

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	wallets, err := m.store.Load()
	if err != nil {
		return err
	}
	for _, w := range wallets {
		m.wallets[w.Name] = w
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	wallets := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Name < wallets[j].Name })
	return m.store.Save(wallets)
}

// --- in-memory store ---

type memStore struct {
	wallets []*Wallet
}

func (s *memStore) Load() ([]*Wallet, error) {
	return s.wallets, nil
}

func (s *memStore) Save(wallets []*Wallet) error {
	s.wallets = wallets
	return nil
}

// --- JSON file store ---

// JSONStore persists wallets to a JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed wallet store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Load() ([]*Wallet, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var wallets []*Wallet
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return wallets, nil
}

func (s *JSONStore) Save(wallets []*Wallet) error {
	data, err := json.MarshalIndent(wallets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
