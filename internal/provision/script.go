package provision

import "fmt"

// WebStartupScript returns the boot script attached to every fleet member.
// It installs and starts the web server unconditionally: on a baked image
// the install is a fast no-op and the start re-enables the service the
// bake left stopped, while on a plain OS image it provisions from scratch.
// The same fleet therefore boots correctly from either image kind.
func WebStartupScript(port int) string {
	script := `#!/bin/bash
set -euo pipefail
export DEBIAN_FRONTEND=noninteractive
apt-get update
apt-get install -y nginx
`
	if port != 80 {
		script += fmt.Sprintf(
			"sed -i 's/listen 80 /listen %d /; s/listen \\[::\\]:80 /listen [::]:%d /' /etc/nginx/sites-available/default\n",
			port, port,
		)
	}
	script += `systemctl enable nginx
systemctl restart nginx
`
	return script
}
