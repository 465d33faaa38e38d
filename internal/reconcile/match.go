package reconcile

import (
	"strconv"
	"strings"

	"github.com/bissquit/statusboard/internal/domain"
	"golang.org/x/text/cases"
)

// Match returns the services that correspond to an instance label. Only services with an
// address take part. A service matches when the label contains its address, equals
// "address:port", or when name and label contain one another ignoring case.
// Matching is best effort; one label may match several services.
func Match(services []domain.Service, label string) []domain.Service {
	if strings.TrimSpace(label) == "" {
		return nil
	}

	fold := cases.Fold()
	foldedLabel := fold.String(label)
	var matched []domain.Service
	for _, svc := range services {
		if matches(fold, svc, label, foldedLabel) {
			matched = append(matched, svc)
		}
	}
	return matched
}

func matches(fold cases.Caser, svc domain.Service, label, foldedLabel string) bool {
	if !svc.HasAddress() {
		return false
	}
	address := *svc.Address
	if strings.Contains(label, address) {
		return true
	}
	if svc.Port != nil && label == address+":"+strconv.Itoa(*svc.Port) {
		return true
	}

	name := fold.String(svc.Name)
	if name == "" {
		return false
	}
	return strings.Contains(name, foldedLabel) || strings.Contains(foldedLabel, name)
}
