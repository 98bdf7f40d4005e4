package revenue

import (
	"os"
	"strings"
)

const (
	// DefaultEChartsAssetsHost serves echarts.min.js and the theme scripts.
	DefaultEChartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

	envAssetsHost = "REVENUE_ECHARTS_ASSETS"
)

// EChartsAssetsHost resolves the host the chart markup loads its scripts
// from. REVENUE_ECHARTS_ASSETS wins over the public mirror.
func EChartsAssetsHost() string {
	return assetsHost(os.Getenv(envAssetsHost))
}

func assetsHost(override string) string {
	host := strings.TrimSpace(override)
	if host == "" {
		return DefaultEChartsAssetsHost
	}
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return host
}
