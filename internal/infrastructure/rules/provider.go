// Package rules loads the expense classification rules and chart of accounts
// from an operator-maintained YAML file and keeps them current.
package rules

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/iho/ledgerrecon/internal/domain"
)

// document is the rules file layout. Keys are case-insensitive.
type document struct {
	Rules domain.RuleSet          `mapstructure:"rules"`
	Chart *domain.ChartOfAccounts `mapstructure:"chart"`
}

// ReloadHook is told about every reload attempt.
type ReloadHook func(version string, err error)

// Provider implements usecase.RuleSetProvider. A failed reload keeps the last
// good rules and chart.
type Provider struct {
	mu         sync.RWMutex
	classifier *domain.Classifier
	chart      domain.ChartOfAccounts
	loadErr    error

	v      *viper.Viper
	logger zerolog.Logger
	hook   ReloadHook
}

// NewDefaultProvider serves the built-in rules and chart.
func NewDefaultProvider() (*Provider, error) {
	c, err := domain.NewClassifier(domain.DefaultRuleSet())
	if err != nil {
		return nil, err
	}
	return &Provider{classifier: c, chart: domain.DefaultChartOfAccounts()}, nil
}

// NewFileProvider loads path. The first load must succeed.
func NewFileProvider(path string, logger zerolog.Logger) (*Provider, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	p := &Provider{v: v, logger: logger}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// OnReload registers hook. Call before Watch.
func (p *Provider) OnReload(hook ReloadHook) {
	p.hook = hook
}

// Watch reloads the file whenever it changes on disk.
func (p *Provider) Watch() {
	if p.v == nil {
		return
	}
	p.v.OnConfigChange(func(e fsnotify.Event) {
		if err := p.Reload(); err != nil {
			p.logger.Error().Err(err).Str("file", e.Name).Msg("rules reload failed, keeping previous rules")
		}
	})
	p.v.WatchConfig()
}

// Reload re-reads the rules file and swaps in the compiled result.
func (p *Provider) Reload() error {
	if p.v == nil {
		return nil
	}

	classifier, chart, err := p.load()

	p.mu.Lock()
	if err == nil {
		p.classifier = classifier
		p.chart = chart
	}
	p.loadErr = err
	p.mu.Unlock()

	version := ""
	if classifier != nil {
		version = classifier.Version()
	}
	if p.hook != nil {
		p.hook(version, err)
	}
	if err == nil {
		p.logger.Info().Str("rules_version", version).Msg("classification rules loaded")
	}

	return err
}

func (p *Provider) load() (*domain.Classifier, domain.ChartOfAccounts, error) {
	if err := p.v.ReadInConfig(); err != nil {
		return nil, domain.ChartOfAccounts{}, fmt.Errorf("read rules file: %w", err)
	}

	var doc document
	if err := p.v.Unmarshal(&doc); err != nil {
		return nil, domain.ChartOfAccounts{}, fmt.Errorf("decode rules file: %w", err)
	}

	classifier, err := domain.NewClassifier(&doc.Rules)
	if err != nil {
		return nil, domain.ChartOfAccounts{}, err
	}

	chart := domain.DefaultChartOfAccounts()
	if doc.Chart != nil {
		chart = *doc.Chart
	}
	if err := chart.Validate(); err != nil {
		return nil, domain.ChartOfAccounts{}, err
	}

	return classifier, chart, nil
}

// Classifier returns the current compiled rules.
func (p *Provider) Classifier() (*domain.Classifier, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.classifier == nil {
		if p.loadErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRulesUnavailable, p.loadErr)
		}
		return nil, domain.ErrRulesUnavailable
	}
	return p.classifier, nil
}

// Chart returns the current chart of accounts.
func (p *Provider) Chart() domain.ChartOfAccounts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chart
}

// LastError returns the error of the most recent reload, nil if it succeeded.
func (p *Provider) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadErr
}
