package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"bodyscan-go/internal/model"
	"bodyscan-go/internal/regions"
	"bodyscan-go/internal/repository"
	"bodyscan-go/pkg/models"
)

// ErrUnknownRegion зона не входит в число измеряемых
var ErrUnknownRegion = errors.New("unknown region")

// ErrInvalidProfile обновленный профиль не прошел проверку
var ErrInvalidProfile = errors.New("invalid profile update")

// Источники таблицы профилей
const (
	SourceDatabase = "database"
	SourceBuiltin  = "builtin"
)

// ProfileService синхронизирует активную таблицу профилей с ее копией в базе
type ProfileService struct {
	repo     repository.RegionProfileRepository
	store    *regions.Store
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewProfileService создает сервис профилей. repo может быть nil, тогда используется встроенная таблица.
func NewProfileService(repo repository.RegionProfileRepository, store *regions.Store, logger *logrus.Logger) *ProfileService {
	return &ProfileService{
		repo:     repo,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Source откуда взята активная таблица
func (s *ProfileService) Source() string {
	if s.repo == nil {
		return SourceBuiltin
	}
	return SourceDatabase
}

// Load досевает недостающие строки и загружает сохраненную таблицу в хранилище
func (s *ProfileService) Load() error {
	if s.repo == nil {
		s.logger.Info("Используются встроенные профили зон")
		return nil
	}

	defaults := regions.Defaults()
	rows := make([]*model.RegionProfile, 0, len(defaults))
	for _, p := range defaults {
		rows = append(rows, model.FromProfile(p))
	}
	inserted, err := s.repo.SeedDefaults(rows)
	if err != nil {
		return fmt.Errorf("failed to seed region profiles: %w", err)
	}
	if inserted > 0 {
		s.logger.Infof("Добавлено профилей зон: %d", inserted)
	}

	stored, err := s.repo.List()
	if err != nil {
		return err
	}

	profiles := make([]regions.Profile, 0, len(stored))
	for _, row := range stored {
		p := row.ToProfile()
		if err := p.Validate(); err != nil {
			s.logger.Warnf("Пропускаем сохраненный профиль: %v", err)
			continue
		}
		profiles = append(profiles, p)
	}
	if err := s.store.Replace(profiles); err != nil {
		return fmt.Errorf("failed to load region profiles: %w", err)
	}

	s.logger.Infof("Загружено %d профилей зон из базы данных", len(profiles))
	return nil
}

// List активные профили в порядке вывода
func (s *ProfileService) List() *ListProfilesResponse {
	all := s.store.All()
	views := make([]ProfileView, 0, len(all))
	for _, p := range all {
		views = append(views, profileView(p))
	}
	return &ListProfilesResponse{Profiles: views, Total: len(views), Source: s.Source()}
}

// Get профиль одной зоны. При наличии базы побеждает сохраненная строка и становится активной,
// так видна настройка, сделанная другим экземпляром.
func (s *ProfileService) Get(region string) (*ProfileView, error) {
	r := models.MeasurementRegion(region)
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}

	if s.repo != nil {
		row, err := s.repo.GetByRegion(region)
		switch {
		case errors.Is(err, repository.ErrProfileNotFound):
			s.logger.Debugf("Профиль %s еще не сохранен, берем активный", region)
		case err != nil:
			return nil, err
		default:
			p := row.ToProfile()
			if err := p.Validate(); err != nil {
				s.logger.Warnf("Игнорируем сохраненный профиль: %v", err)
				break
			}
			if err := s.store.Update(p); err != nil {
				return nil, err
			}
			v := profileView(p)
			return &v, nil
		}
	}

	p, ok := s.store.Get(r)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}
	v := profileView(p)
	return &v, nil
}

// Update применяет частичное обновление, сохраняет его в базу, если она настроена, и активирует
func (s *ProfileService) Update(region string, req ProfileUpdateRequest) (*ProfileView, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid profile update: %w", err)
	}

	r := models.MeasurementRegion(region)
	current, ok := s.store.Get(r)
	if !r.Valid() || !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}

	next := current
	if req.From != nil {
		next.From = *req.From
	}
	if req.To != nil {
		next.To = *req.To
	}
	if req.Ratio != nil {
		next.Ratio = *req.Ratio
	}
	if req.Scan != nil {
		next.Scan = regions.ScanMode(*req.Scan)
	}
	if req.CorrectionFactor != nil {
		next.CorrectionFactor = *req.CorrectionFactor
	}
	if req.ConfidenceWeight != nil {
		next.ConfidenceWeight = *req.ConfidenceWeight
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	if s.repo != nil {
		if err := s.repo.Upsert(model.FromProfile(next)); err != nil {
			s.logger.Errorf("Ошибка сохранения профиля %s: %v", region, err)
			return nil, err
		}
	}
	if err := s.store.Update(next); err != nil {
		return nil, err
	}

	s.logger.Infof("Профиль зоны %s обновлен: ratio=%.3f factor=%.3f", region, next.Ratio, next.CorrectionFactor)
	v := profileView(next)
	return &v, nil
}

func profileView(p regions.Profile) ProfileView {
	return ProfileView{
		Region:           p.Region,
		From:             p.From,
		To:               p.To,
		Ratio:            p.Ratio,
		Scan:             string(p.Scan),
		CorrectionFactor: p.CorrectionFactor,
		ConfidenceWeight: p.ConfidenceWeight,
	}
}
