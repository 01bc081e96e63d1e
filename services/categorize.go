package services

import (
	"sort"
	"strings"

	"mallcatalog/models"
)

type keywordRule struct {
	category string
	keywords []string
}

// ordered: the first rule with a matching keyword wins, so narrower groups come first
var categoryRules = []keywordRule{
	{"건강식품", []string{"홍삼", "인삼", "흑삼", "오미자", "즙", "엑기스", "진액", "청국장환", "꿀", "프로폴리스", "녹용"}},
	{"전통주/음료", []string{"막걸리", "약주", "와인", "증류주", "전통주", "식혜", "음료", "주스", "커피", "차 ", "녹차", "티백"}},
	{"축산물", []string{"한우", "소고기", "쇠고기", "돼지", "흑돼지", "목살", "삼겹", "등심", "불고기", "국거리", "닭", "오리", "계란", "달걀", "육포"}},
	{"수산물", []string{"전복", "굴비", "고등어", "갈치", "오징어", "새우", "멸치", "미역", "다시마", "김 ", "조기", "꽃게", "홍합", "수산", "생선"}},
	{"가공식품", []string{"김치", "절임", "젓갈", "장아찌", "된장", "고추장", "간장", "청국장", "만두", "떡", "순대", "한과", "과자", "잼", "소스", "분말", "가루", "국수"}},
	{"농산물", []string{"쌀", "현미", "잡곡", "찹쌀", "감자", "고구마", "양파", "마늘", "배추", "사과", "배 ", "감귤", "한라봉", "귤", "복숭아", "포도", "자두", "딸기", "토마토", "대추", "밤", "더덕", "도라지", "나물", "버섯", "과일", "채소"}},
	{"생활용품", []string{"비누", "세제", "수건", "그릇", "도마", "칫솔", "화장품", "크림", "주방", "생활"}},
}

type tagRule struct {
	tag      string
	keywords []string
}

var tagRules = []tagRule{
	{"유기농", []string{"유기농", "유기"}},
	{"무농약", []string{"무농약"}},
	{"친환경", []string{"친환경"}},
	{"GAP", []string{"gap"}},
	{"HACCP", []string{"haccp"}},
	{"국내산", []string{"국내산", "국산"}},
	{"선물세트", []string{"선물세트", "선물 세트", "세트"}},
	{"햇상품", []string{"햇사과", "햇감자", "햇밤", "햇쌀", "햇곡", "햇배"}},
	{"냉동", []string{"냉동"}},
	{"특산품", []string{"특산"}},
	{"전통", []string{"전통"}},
}

// Categorize resolves the category of a record: the mall's label mapping first (exact,
// then substring), then keyword inference on the name, then models.DefaultCategory
func Categorize(name, rawLabel string, mapping map[string]string) string {
	label := strings.TrimSpace(rawLabel)
	if label != "" && len(mapping) > 0 {
		// mapped values outside the vocabulary are ignored
		if c, ok := mapping[label]; ok && models.IsCategory(c) {
			return c
		}
		for _, k := range sortedKeys(mapping) {
			if strings.Contains(label, k) && models.IsCategory(mapping[k]) {
				return mapping[k]
			}
		}
	}
	if c := inferCategory(label); c != "" {
		return c
	}
	if c := inferCategory(name); c != "" {
		return c
	}
	return models.DefaultCategory
}

func inferCategory(text string) string {
	if text == "" {
		return ""
	}
	// trailing space lets short keywords like "배 " match at the end of the text
	text = strings.ToLower(text) + " "
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return ""
}

// Tags derives product markers from the name plus the mall region. Order is stable.
func Tags(name, region string) []string {
	text := strings.ToLower(name)
	tags := make([]string, 0, 4)
	for _, rule := range tagRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	if r := regionTag(region); r != "" {
		tags = append(tags, r)
	}
	return tags
}

// regionTag shortens an address-like region ("강원도 원주시") to its most specific part
func regionTag(region string) string {
	fields := strings.Fields(region)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// sortedKeys returns map keys longest first so the most specific label wins
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
