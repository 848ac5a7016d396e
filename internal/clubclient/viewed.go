package clubclient

import (
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ViewedSet は閲覧数を加算済みの識別子の集合。
// 集合は単調に増加し、要素が削除されることはない。
type ViewedSet interface {
	// Seen は識別子が登録済みかどうかを返す。
	Seen(key string) (bool, error)
	// Mark は識別子を登録する。新たに追加された場合のみtrueを返す。
	// 判定と追加は不可分に行われる。
	Mark(key string) (bool, error)
}

// MemoryViewedSet はプロセス内で完結するViewedSet。
// セッション（Trackerの生存期間）ごとに1つ生成する。
type MemoryViewedSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemoryViewedSet はMemoryViewedSetを生成する。
func NewMemoryViewedSet() *MemoryViewedSet {
	return &MemoryViewedSet{keys: make(map[string]struct{})}
}

// Seen は識別子が登録済みかどうかを返す。
func (s *MemoryViewedSet) Seen(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

// Mark は識別子を登録する。
func (s *MemoryViewedSet) Mark(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

// viewedKeyPrefix はbadger上のキー接頭辞。
const viewedKeyPrefix = "viewed:"

// BadgerViewedSet はbadgerに永続化するViewedSet。
// プロセスを再起動しても加算済みの識別子を保持する。
type BadgerViewedSet struct {
	db *badger.DB
	// mu はMarkの読み取りと書き込みを直列化し、トランザクション競合を避ける。
	mu sync.Mutex
}

// OpenBadgerViewedSet は指定ディレクトリのbadgerデータベースを開く。
func OpenBadgerViewedSet(path string) (*BadgerViewedSet, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴データベースのオープンに失敗しました: %w", err)
	}
	return &BadgerViewedSet{db: db}, nil
}

// Close はデータベースを閉じる。
func (s *BadgerViewedSet) Close() error {
	return s.db.Close()
}

// Seen は識別子が登録済みかどうかを返す。
func (s *BadgerViewedSet) Seen(key string) (bool, error) {
	seen := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(viewedKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("閲覧履歴の参照に失敗しました: %w", err)
	}
	return seen, nil
}

// Mark は識別子を登録する。値には登録時刻を保存する。
func (s *BadgerViewedSet) Mark(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := false
	err := s.db.Update(func(txn *badger.Txn) error {
		k := []byte(viewedKeyPrefix + key)
		_, err := txn.Get(k)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		added = true
		return txn.SetEntry(badger.NewEntry(k, []byte(time.Now().UTC().Format(time.RFC3339))))
	})
	if err != nil {
		return false, fmt.Errorf("閲覧履歴の保存に失敗しました: %w", err)
	}
	return added, nil
}

var (
	_ ViewedSet = (*MemoryViewedSet)(nil)
	_ ViewedSet = (*BadgerViewedSet)(nil)
)
