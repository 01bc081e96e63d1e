package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mallcatalog/models"
)

const mallsFixture = `[
  {
    id: "wonju",
    name: "원주몰",
    baseUrl: "https://wonju-mall.co.kr",
    startUrls: ["/goods/catalog?code=0001"],
    ruleSets: [
      {
        containerSelector: "li.gl_item",
        nameSelectors: [".gli_name"],
        priceSelectors: [".gli_price"],
        pagination: { param: "page" },
      },
    ],
  },
  {
    id: "wemall",
    baseUrl: "https://wemall.kr",
    ruleSets: [
      {
        containerSelector: ".shop .list > li",
        nameSelectors: ["h3"],
        priceSelectors: [".price"],
        pagination: { param: "start", start: 0, step: 12 },
      },
    ],
  },
]`

func TestLoadMallsDefaultsAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "malls.json5")
	writeFile(t, path, mallsFixture)

	malls, err := LoadMalls(path)
	require.NoError(t, err)
	require.Equal(t, 2, malls.Len())

	all := malls.All()
	require.Equal(t, "wonju", all[0].ID)
	require.Equal(t, "wemall", all[1].ID)

	wonju, err := malls.Get("wonju")
	require.NoError(t, err)
	require.Equal(t, models.RenderStatic, wonju.RenderMode)
	require.Equal(t, []string{"https://wonju-mall.co.kr/goods/catalog?code=0001"}, wonju.StartURLs)
	require.Equal(t, []string{"wonju-mall.co.kr"}, wonju.HostDomains())
	require.Equal(t, 1, wonju.RuleSets[0].Pagination.Start)
	require.Equal(t, 1, wonju.RuleSets[0].Pagination.Step)

	wemall, err := malls.Get("wemall")
	require.NoError(t, err)
	require.Equal(t, "wemall", wemall.Name)
	require.Equal(t, []string{"https://wemall.kr"}, wemall.Seeds())
	require.Equal(t, 0, wemall.RuleSets[0].Pagination.Start)
	require.Equal(t, 12, wemall.RuleSets[0].Pagination.Step)

	_, err = malls.Get("nope")
	require.ErrorIs(t, err, ErrUnknownMall)
}

func TestLoadMallsLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "malls.json5")
	writeFile(t, path, mallsFixture)
	writeFile(t, filepath.Join(dir, "malls.local.json5"), `[
		{ id: "wonju", renderMode: "rendered", maxPages: 3 },
		{ id: "extra", baseUrl: "https://extra.example.com", ruleSets: [
			{ containerSelector: "li", nameSelectors: ["b"], priceSelectors: ["i"] },
		] },
	]`)

	malls, err := LoadMalls(path)
	require.NoError(t, err)
	require.Equal(t, 3, malls.Len())

	wonju, err := malls.Get("wonju")
	require.NoError(t, err)
	require.True(t, wonju.Rendered())
	require.Equal(t, 3, wonju.MaxPages)
	require.Equal(t, "원주몰", wonju.Name)
	require.Len(t, wonju.RuleSets, 1)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	good := func() models.MallConfig {
		return models.MallConfig{
			ID:      "m",
			BaseURL: "https://m.example.com",
			RuleSets: []models.RuleSet{{
				ContainerSelector: "li",
				NameSelectors:     []string{".n"},
				PriceSelectors:    []string{".p"},
			}},
		}
	}

	cases := map[string]func(*models.MallConfig){
		"relative base url": func(c *models.MallConfig) { c.BaseURL = "/shop" },
		"bad render mode":   func(c *models.MallConfig) { c.RenderMode = "magic" },
		"no rule-sets":      func(c *models.MallConfig) { c.RuleSets = nil },
		"no container":      func(c *models.MallConfig) { c.RuleSets[0].ContainerSelector = " " },
		"no price":          func(c *models.MallConfig) { c.RuleSets[0].PriceSelectors = nil },
		"unknown category": func(c *models.MallConfig) {
			c.CategoryMap = map[string]string{"쌀/잡곡": "농산물", "과일": "Fruit & Veg"}
		},
		"empty pagination": func(c *models.MallConfig) {
			c.RuleSets[0].Pagination = &models.Pagination{MaxPages: 2}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := good()
			mutate(&c)
			require.Error(t, Validate(&c))
		})
	}

	c := good()
	c.CategoryMap = map[string]string{"쌀/잡곡": "농산물", "기타상품": models.DefaultCategory}
	require.NoError(t, Validate(&c))
}

func TestNewMallsRejectsDuplicates(t *testing.T) {
	c := models.MallConfig{
		ID:      "dup",
		BaseURL: "https://dup.example.com",
		RuleSets: []models.RuleSet{{
			ContainerSelector: "li", NameSelectors: []string{"a"}, PriceSelectors: []string{"b"},
		}},
	}
	_, err := NewMalls(c, c)
	require.Error(t, err)
}
