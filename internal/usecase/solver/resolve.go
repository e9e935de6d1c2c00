package solver

import (
	"fmt"
	"strings"
)

// ResolveSubmitURL joins a possibly relative submit URL against the page URL.
// Only three forms are recognised: anything starting with "http" is used
// as is, a leading "/" is joined to scheme and host, and anything else is
// appended to the full current URL after a "/". No further normalisation
// is applied.
func ResolveSubmitURL(currentURL, submitURL string) (string, error) {
	if strings.HasPrefix(submitURL, "http") {
		return submitURL, nil
	}

	parts := strings.Split(currentURL, "/")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q", ErrBadCurrentURL, currentURL)
	}

	if strings.HasPrefix(submitURL, "/") {
		return parts[0] + "//" + parts[2] + submitURL, nil
	}
	return currentURL + "/" + submitURL, nil
}
