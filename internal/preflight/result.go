package preflight

import (
	"errors"
	"fmt"

	"github.com/manolodalbo/nurse-cadet/internal/services"
)

// Err combines failed results into a configuration error, or returns nil when
// every check passed.
func Err(results []Result) error {
	var failures []error
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "checks failed", "", errors.Join(failures...))
}
