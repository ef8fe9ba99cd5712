package repository

import (
	"context"
	"errors"

	"go-market-ledger/internal/model"

	"gorm.io/gorm"
)

type CommissionRepository interface {
	FindLatestActive(ctx context.Context) (*model.CommissionSetting, error)
	// EnsureActive returns the newest active setting, creating fallback when
	// there is none. Concurrent callers observe a single created row.
	EnsureActive(ctx context.Context, fallback *model.CommissionSetting) (*model.CommissionSetting, error)
	Create(ctx context.Context, setting *model.CommissionSetting) error
	FindAll(ctx context.Context) ([]model.CommissionSetting, error)
}

type commissionRepo struct {
	db *gorm.DB
}

func NewCommissionRepo(db *gorm.DB) CommissionRepository {
	return &commissionRepo{db}
}

func (r *commissionRepo) FindLatestActive(ctx context.Context) (*model.CommissionSetting, error) {
	return latestActive(r.db.WithContext(ctx))
}

// activeSettings orders active rows newest first; ties on created_at fall
// back to id so the pick is stable.
func activeSettings(db *gorm.DB) *gorm.DB {
	return db.Model(&model.CommissionSetting{}).
		Where("active = ?", true).
		Order("created_at DESC, id DESC")
}

func latestActive(db *gorm.DB) (*model.CommissionSetting, error) {
	var setting model.CommissionSetting
	err := activeSettings(db).First(&setting).Error
	if err != nil {
		return nil, translate(err)
	}
	return &setting, nil
}

func (r *commissionRepo) EnsureActive(ctx context.Context, fallback *model.CommissionSetting) (*model.CommissionSetting, error) {
	var result *model.CommissionSetting
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialise first-use initialisation across processes.
		if err := advisoryLock(tx, "commission_settings").Error; err != nil {
			return err
		}

		existing, err := latestActive(tx)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := tx.Create(fallback).Error; err != nil {
			return err
		}
		result = fallback
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *commissionRepo) Create(ctx context.Context, setting *model.CommissionSetting) error {
	return r.db.WithContext(ctx).Create(setting).Error
}

func (r *commissionRepo) FindAll(ctx context.Context) ([]model.CommissionSetting, error) {
	var settings []model.CommissionSetting
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&settings).Error
	return settings, err
}
