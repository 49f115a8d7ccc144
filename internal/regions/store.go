package regions

import (
	"fmt"
	"sync"

	"bodyscan-go/pkg/models"
)

// Store хранит активную таблицу профилей. Безопасен для конкурентного доступа.
type Store struct {
	mu       sync.RWMutex
	profiles map[models.MeasurementRegion]Profile
}

// NewStore создает хранилище со встроенной таблицей
func NewStore() *Store {
	s := &Store{}
	if err := s.Replace(Defaults()); err != nil {
		panic(fmt.Sprintf("regions: invalid built-in table: %v", err))
	}
	return s
}

// Replace заменяет всю таблицу. Зоны, которых нет в profiles, сохраняют текущее значение.
func (s *Store) Replace(profiles []Profile) error {
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[models.MeasurementRegion]Profile, models.RegionCount)
	for k, v := range s.profiles {
		next[k] = v
	}
	for _, p := range profiles {
		next[p.Region] = p
	}
	s.profiles = next
	return nil
}

// Update заменяет профиль одной зоны
func (s *Store) Update(p Profile) error {
	return s.Replace([]Profile{p})
}

// Get возвращает профиль одной зоны
func (s *Store) Get(region models.MeasurementRegion) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[region]
	return p, ok
}

// All возвращает снимок таблицы в порядке вывода
func (s *Store) All() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for _, r := range models.AllRegions {
		if p, ok := s.profiles[r]; ok {
			out = append(out, p)
		}
	}
	return out
}

// CorrectionFactor возвращает поправочный коэффициент зоны, 1.0 для неизвестной
func (s *Store) CorrectionFactor(region models.MeasurementRegion) float64 {
	if p, ok := s.Get(region); ok {
		return p.CorrectionFactor
	}
	return 1.0
}

// ConfidenceWeight возвращает вес зоны в общей уверенности, 1.0 для неизвестной
func (s *Store) ConfidenceWeight(region models.MeasurementRegion) float64 {
	if p, ok := s.Get(region); ok {
		return p.ConfidenceWeight
	}
	return 1.0
}
