package riot

import (
	"sort"
	"strings"

	"github.com/keithlinneman/riotquota/internal/xerrors"
)

// platformHosts maps a region code to its platform routing host.
var platformHosts = map[string]string{
	"BR":   "br1.api.riotgames.com",
	"EUNE": "eun1.api.riotgames.com",
	"EUW":  "euw1.api.riotgames.com",
	"JP":   "jp1.api.riotgames.com",
	"KR":   "kr.api.riotgames.com",
	"LAN":  "la1.api.riotgames.com",
	"LAS":  "la2.api.riotgames.com",
	"NA":   "na1.api.riotgames.com",
	"OCE":  "oc1.api.riotgames.com",
	"RU":   "ru.api.riotgames.com",
	"TR":   "tr1.api.riotgames.com",
}

// PlatformHost resolves a region code (case-insensitive) to its API host.
func PlatformHost(region string) (string, error) {
	host, ok := platformHosts[strings.ToUpper(strings.TrimSpace(region))]
	if !ok {
		return "", xerrors.Newf("unknown region %q (valid regions: %s)", region, strings.Join(Regions(), ", "))
	}
	return host, nil
}

// Regions returns the known region codes, sorted.
func Regions() []string {
	out := make([]string, 0, len(platformHosts))
	for r := range platformHosts {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
