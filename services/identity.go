package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// query keys that carry a site-native product id on the common mall platforms
var idQueryKeys = []string{
	"no", "goodsNo", "goods_no", "goodsno", "it_id", "product_no", "branduid", "pdtCode", "idx", "id",
}

var (
	idPathPattern = regexp.MustCompile(`(?i)/(?:goods|products?|item)/(?:[^/?#]+/)?(\d+)(?:[/?#.]|$)`)
	nativeIDValue = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// ProductID derives the stable identity of a product from its canonical URL: the site-native
// id when the URL carries one, else a name-based UUIDv5 of the normalized URL
func ProductID(productURL string) string {
	u, err := url.Parse(productURL)
	if err != nil {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(productURL)).String()
	}
	if id := nativeID(u); id != "" {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(NormalizeURL(u))).String()
}

func nativeID(u *url.URL) string {
	q := u.Query()
	for _, key := range idQueryKeys {
		if v := strings.TrimSpace(q.Get(key)); nativeIDValue.MatchString(v) {
			return v
		}
	}
	if m := idPathPattern.FindStringSubmatch(u.EscapedPath()); m != nil {
		return m[1]
	}
	return ""
}

// NormalizeURL renders u with a lowercase host, no fragment, no tracking parameters and
// sorted query keys, so equivalent links hash alike
func NormalizeURL(u *url.URL) string {
	out := *u
	out.Scheme = strings.ToLower(out.Scheme)
	out.Host = strings.ToLower(out.Host)
	out.Fragment = ""
	out.RawFragment = ""

	q := out.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	out.RawQuery = q.Encode()
	return out.String()
}
