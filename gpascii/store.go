package gpascii

import (
	"sort"
	"sync"
	"time"
)

// Variable - последнее известное значение переменной контроллера.
type Variable struct {
	Name      string
	Value     Value
	Timestamp time.Time
}

// Stale сообщает, старше ли значение maxAge относительно now.
func (v Variable) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(v.Timestamp) > maxAge
}

// Store - потокобезопасное зеркало переменных контроллера.
// Одно значение на имя, побеждает последняя запись.
type Store struct {
	mu   sync.RWMutex
	vars map[string]Variable
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		vars: make(map[string]Variable),
		now:  time.Now,
	}
}

// Put сохраняет значение с текущей отметкой времени.
func (s *Store) Put(name string, v Value) Variable {
	variable := Variable{Name: Normalize(name), Value: v, Timestamp: s.now()}
	s.mu.Lock()
	s.vars[variable.Name] = variable
	s.mu.Unlock()
	return variable
}

// Get возвращает последнее известное значение.
func (s *Store) Get(name string) (Variable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[Normalize(name)]
	return v, ok
}

func (s *Store) Delete(name string) {
	s.mu.Lock()
	delete(s.vars, Normalize(name))
	s.mu.Unlock()
}

// Snapshot возвращает копию всех переменных, отсортированную по имени.
func (s *Store) Snapshot() []Variable {
	s.mu.RLock()
	out := make([]Variable, 0, len(s.vars))
	for _, v := range s.vars {
		out = append(out, v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}
