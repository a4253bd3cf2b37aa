package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paycore/paycore/internal/apperrors"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/middleware"
	"github.com/shopspring/decimal"
)

type ConversionService struct {
	rateProvider portssvc.RateProvider
	rateCache    portssvc.RateCache
	currencyRepo portsrepo.CurrencyRepositoryFacade
}

func NewConversionService(rateProvider portssvc.RateProvider, rateCache portssvc.RateCache, currencyRepo portsrepo.CurrencyRepositoryFacade) *ConversionService {
	return &ConversionService{
		rateProvider: rateProvider,
		rateCache:    rateCache,
		currencyRepo: currencyRepo,
	}
}

var _ portssvc.ConversionSvcFacade = (*ConversionService)(nil)

// Convert resolves the rate for the pair and applies it, rounding the result
// to the destination currency's precision. Rates come from the cache when
// fresh, otherwise from the provider; cache failures degrade to a provider
// call rather than failing the conversion.
func (s *ConversionService) Convert(ctx context.Context, amount decimal.Decimal, fromCurrency, toCurrency string, asOf time.Time) (portssvc.ConvertedAmount, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if fromCurrency == toCurrency {
		return portssvc.ConvertedAmount{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := s.resolveRate(ctx, logger, fromCurrency, toCurrency, asOf)
	if err != nil {
		return portssvc.ConvertedAmount{}, err
	}

	converted := amount.Mul(rate)
	if currency, err := s.currencyRepo.FindCurrencyByCode(ctx, toCurrency); err == nil {
		converted = converted.Round(int32(currency.Precision))
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return portssvc.ConvertedAmount{}, fmt.Errorf("currency lookup for rounding: %w", err)
	}

	return portssvc.ConvertedAmount{Amount: converted, Rate: rate}, nil
}

func (s *ConversionService) resolveRate(ctx context.Context, logger *slog.Logger, fromCurrency, toCurrency string, asOf time.Time) (decimal.Decimal, error) {
	if s.rateCache != nil {
		rate, ok, err := s.rateCache.GetRate(ctx, fromCurrency, toCurrency)
		if err != nil {
			logger.Warn("Rate cache read failed, falling back to provider",
				slog.String("error", err.Error()),
				slog.String("pair", fromCurrency+"/"+toCurrency))
		} else if ok {
			return rate, nil
		}
	}

	rate, err := s.rateProvider.GetRate(ctx, fromCurrency, toCurrency, asOf)
	if err != nil {
		if errors.Is(err, apperrors.ErrRateUnavailable) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("rate provider: %w", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate %s for %s/%s: %w", rate, fromCurrency, toCurrency, apperrors.ErrRateUnavailable)
	}

	if s.rateCache != nil {
		if err := s.rateCache.SetRate(ctx, fromCurrency, toCurrency, rate); err != nil {
			logger.Warn("Rate cache write failed",
				slog.String("error", err.Error()),
				slog.String("pair", fromCurrency+"/"+toCurrency))
		}
	}
	return rate, nil
}
