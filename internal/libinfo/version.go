/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo resolves the version of this module as it is seen by the application that imports it.
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-floodgate"

// UnknownVersion is reported when the module version cannot be found in the build info.
const UnknownVersion = "v0.0.0"

// PrometheusLibVersionLabel is the name of the constant label added to the exported metrics.
const PrometheusLibVersionLabel = "floodgate_version"

// AddPrometheusLibVersionLabel returns a copy of labels with the module version label added.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = GetLibVersion()
	return res
}

var (
	libVersion     string
	libVersionOnce sync.Once
)

// GetLibVersion returns the version of the module the application depends on.
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			libVersion = findModuleVersion(info, moduleName)
		}
		if libVersion == "" {
			libVersion = UnknownVersion
		}
	})
	return libVersion
}

// findModuleVersion looks for modName or its major version path (modName/vX) among the dependencies.
func findModuleVersion(info *buildinfo.BuildInfo, modName string) string {
	if info == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	for _, dep := range info.Deps {
		if re.MatchString(dep.Path) {
			if dep.Replace != nil && dep.Replace.Version != "" {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}
