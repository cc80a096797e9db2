package graphquery

import (
	"fmt"

	"corectx/internal/corerr"
)

var (
	errEmptyQuery   = corerr.Invalid("graph query is empty")
	errMissingCID   = corerr.Invalid("graph query missing $cid filter")
	errMissingLimit = corerr.Invalid("graph query missing LIMIT clause")
)

func errForbiddenKeyword(kw string) error {
	return corerr.Invalid(fmt.Sprintf("graph query contains forbidden keyword %q", kw))
}

func errHopsExceedMax(n, max int) error {
	return corerr.Invalid(fmt.Sprintf("graph query hop range *..%d exceeds max_hops %d", n, max))
}
