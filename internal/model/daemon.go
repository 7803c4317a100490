package model

import (
	"strconv"
	"strings"
)

// CompareDaemons orders daemon ids by type, then numeric id ("osd.2" before "osd.10").
// Ids without a numeric suffix fall back to string order.
func CompareDaemons(a, b string) int {
	at, an, aok := splitDaemon(a)
	bt, bn, bok := splitDaemon(b)
	if aok && bok && at == bt {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func splitDaemon(id string) (string, int, bool) {
	typ, num, ok := strings.Cut(id, ".")
	if !ok {
		return "", 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", 0, false
	}
	return typ, n, true
}
