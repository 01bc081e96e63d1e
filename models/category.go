package models

import "slices"

// DefaultCategory is assigned when neither the mall mapping nor keyword inference applies
const DefaultCategory = "기타"

// Categories is the controlled vocabulary every record's category comes from
var Categories = []string{
	"농산물", "수산물", "축산물", "가공식품", "건강식품", "전통주/음료", "생활용품", DefaultCategory,
}

// IsCategory reports whether c belongs to the controlled vocabulary
func IsCategory(c string) bool {
	return slices.Contains(Categories, c)
}
