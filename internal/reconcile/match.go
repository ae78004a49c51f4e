package reconcile

import (
	"strconv"
	"strings"

	"github.com/statusforge/statusforge/internal/grafana"
	"github.com/statusforge/statusforge/internal/status"
)

// matchServices finds every catalog service a Grafana sample belongs to.
// One instance can back several services (e.g. a host and the app on it),
// so all matches are returned. A service matches when any of these holds:
//
//  1. the service address is a substring of the sample's instance label
//  2. the instance equals address:port exactly
//  3. the service name and the instance contain each other
//     (case-insensitive, either direction)
func matchServices(services []status.Service, sample grafana.Sample) []*status.Service {
	instance := sample.Instance()
	if instance == "" {
		return nil
	}
	lowerInstance := strings.ToLower(instance)

	var matched []*status.Service
	for i := range services {
		svc := &services[i]
		if serviceMatches(svc, instance, lowerInstance) {
			matched = append(matched, svc)
		}
	}
	return matched
}

func serviceMatches(svc *status.Service, instance, lowerInstance string) bool {
	if svc.Address != "" {
		if strings.Contains(instance, svc.Address) {
			return true
		}
		if svc.Port != 0 && instance == svc.Address+":"+strconv.Itoa(svc.Port) {
			return true
		}
	}

	lowerName := strings.ToLower(svc.Name)
	return lowerName != "" &&
		(strings.Contains(lowerInstance, lowerName) || strings.Contains(lowerName, lowerInstance))
}
