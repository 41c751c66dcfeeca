package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/reactor/buildinfo"
)

// RegisterBuildInfo exposes the binary's build properties as a constant
// gauge, following the usual <namespace>_build_info convention.
func RegisterBuildInfo(reg Registry) error {
	info, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build properties of the running binary. Always 1.",
	}, []string{"version", "commit", "build_time"})
	if err != nil {
		return fmt.Errorf("registering build info: %w", err)
	}

	p := buildinfo.Get()
	info.With(prometheus.Labels{
		"version":    p.Version,
		"commit":     p.GitCommit,
		"build_time": p.BuildTime,
	}).Set(1)
	return nil
}
