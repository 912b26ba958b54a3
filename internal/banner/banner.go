// Package banner renders the startup banner.
package banner

import "fmt"

const art = `
        _
  __ _ | |__   ___  __ _
 / _` + "`" + ` || '_ \ / __|/ _` + "`" + ` |
| (_| || |_) |\__ \ (_| |
 \__,_||_.__/ |___/\__,_|
`

// Banner returns the startup banner with the version appended.
func Banner(version string) string {
	return fmt.Sprintf("%s aspect-based sentiment analysis %s\n\n", art, version)
}
