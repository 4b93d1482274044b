package descriptor

import "sort"

// License names one of the supported licenses by its descriptor key.
type License string

// LicenseInfo carries the per-distribution spelling of a license.
type LicenseInfo struct {
	Name          string
	TextURL       string
	DebianName    string
	ArchlinuxName string
}

// DebianFile is the location of the license text on Debian systems.
func (l LicenseInfo) DebianFile() string {
	return "/usr/share/common-licenses/" + l.DebianName
}

var licenses = map[License]LicenseInfo{
	"GPL_30":    {Name: "GPL-3.0", TextURL: "https://www.gnu.org/licenses/gpl-3.0.txt", DebianName: "GPL-3", ArchlinuxName: "GPL3"},
	"LGPL_30":   {Name: "LGPL-3.0", TextURL: "https://www.gnu.org/licenses/lgpl-3.0.txt", DebianName: "LGPL-3", ArchlinuxName: "LGPL3"},
	"GPL_20":    {Name: "GPL-2.0", TextURL: "https://www.gnu.org/licenses/gpl-2.0.txt", DebianName: "GPL-2", ArchlinuxName: "GPL2"},
	"LGPL_21":   {Name: "LGPL-2.1", TextURL: "https://www.gnu.org/licenses/lgpl-2.1.txt", DebianName: "LGPL-2.1", ArchlinuxName: "LGPL2.1"},
	"LGPL_20":   {Name: "LGPL-2.0", TextURL: "https://www.gnu.org/licenses/lgpl-2.0.txt", DebianName: "LGPL-2", ArchlinuxName: "LGPL2"},
	"APACHE_20": {Name: "APACHE-2.0", TextURL: "http://www.apache.org/licenses/LICENSE-2.0.txt", DebianName: "Apache-2.0", ArchlinuxName: "APACHE"},
}

// Info looks up the license details.
func (l License) Info() (LicenseInfo, bool) {
	info, ok := licenses[l]
	return info, ok
}

// Licenses returns the known license keys, sorted.
func Licenses() []string {
	keys := make([]string, 0, len(licenses))
	for k := range licenses {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
