package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"mallcatalog/models"
)

// ErrUnknownMall is returned when a mall id is not present in the mall configuration
var ErrUnknownMall = errors.New("unknown mall")

// Malls is the loaded, validated mall configuration keyed by id, in file order
type Malls struct {
	order []string
	byID  map[string]*models.MallConfig
}

// LoadMalls reads the JSON5 mall list at path and merges <name>.local.<ext> entries over it
// by mall id (new ids are appended). Every mall is validated and defaulted.
func LoadMalls(path string) (*Malls, error) {
	base, err := readMallFile(path)
	if err != nil {
		return nil, err
	}
	local, err := readMallFile(localPath(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	malls := &Malls{byID: make(map[string]*models.MallConfig)}
	for i := range base {
		if err := malls.add(base[i]); err != nil {
			return nil, err
		}
	}
	for _, override := range local {
		existing, ok := malls.byID[override.ID]
		if !ok {
			if err := malls.add(override); err != nil {
				return nil, err
			}
			continue
		}
		if err := mergo.Merge(existing, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge local override for mall %q: %w", override.ID, err)
		}
	}

	for _, id := range malls.order {
		if err := Validate(malls.byID[id]); err != nil {
			return nil, err
		}
	}
	return malls, nil
}

// NewMalls builds a Malls set from in-memory configs, validating each one
func NewMalls(configs ...models.MallConfig) (*Malls, error) {
	malls := &Malls{byID: make(map[string]*models.MallConfig)}
	for _, c := range configs {
		if err := malls.add(c); err != nil {
			return nil, err
		}
		if err := Validate(malls.byID[c.ID]); err != nil {
			return nil, err
		}
	}
	return malls, nil
}

func readMallFile(path string) ([]models.MallConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var configs []models.MallConfig
	if err := json5.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse mall config %s: %w", path, err)
	}
	return configs, nil
}

func (m *Malls) add(c models.MallConfig) error {
	id := strings.TrimSpace(c.ID)
	if id == "" {
		return fmt.Errorf("mall %q: missing id", c.Name)
	}
	if _, dup := m.byID[id]; dup {
		return fmt.Errorf("mall %q: duplicate id", id)
	}
	c.ID = id
	m.byID[id] = &c
	m.order = append(m.order, id)
	return nil
}

// Get returns the mall with the given id
func (m *Malls) Get(id string) (*models.MallConfig, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMall, id)
	}
	return c, nil
}

// All returns every mall in file order
func (m *Malls) All() []*models.MallConfig {
	out := make([]*models.MallConfig, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Len returns the number of configured malls
func (m *Malls) Len() int {
	return len(m.order)
}

// Validate checks a mall config and fills in defaults in place
func Validate(c *models.MallConfig) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("mall %q: baseUrl %q must be an absolute http(s) URL", c.ID, c.BaseURL)
	}
	if c.Name == "" {
		c.Name = c.ID
	}

	switch c.RenderMode {
	case "":
		c.RenderMode = models.RenderStatic
	case models.RenderStatic, models.RenderBrowser:
	default:
		return fmt.Errorf("mall %q: unknown renderMode %q", c.ID, c.RenderMode)
	}

	for i, seed := range c.StartURLs {
		resolved, err := u.Parse(seed)
		if err != nil {
			return fmt.Errorf("mall %q: bad start url %q: %w", c.ID, seed, err)
		}
		c.StartURLs[i] = resolved.String()
	}

	for label, category := range c.CategoryMap {
		if !models.IsCategory(category) {
			return fmt.Errorf("mall %q: categoryMap %q maps to %q, which is not one of %v", c.ID, label, category, models.Categories)
		}
	}

	if len(c.RuleSets) == 0 {
		return fmt.Errorf("mall %q: no rule-sets configured", c.ID)
	}
	for i := range c.RuleSets {
		rs := &c.RuleSets[i]
		if strings.TrimSpace(rs.ContainerSelector) == "" {
			return fmt.Errorf("mall %q: rule-set %d has no container selector", c.ID, i)
		}
		if len(rs.NameSelectors) == 0 || len(rs.PriceSelectors) == 0 {
			return fmt.Errorf("mall %q: rule-set %q needs name and price selectors", c.ID, rs.Label())
		}
		if p := rs.Pagination; p != nil {
			if p.Param == "" && p.NextSelector == "" {
				return fmt.Errorf("mall %q: rule-set %q pagination needs param or nextSelector", c.ID, rs.Label())
			}
			if p.Param != "" {
				if p.Step == 0 {
					p.Step = 1
				}
				if p.Start == 0 && p.Step == 1 {
					p.Start = 1
				}
			}
		}
	}
	return nil
}
