package httpapi

import (
	"fmt"
	"strconv"
)

func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing org_id")
	}
	return strconv.ParseInt(s, 10, 64)
}
