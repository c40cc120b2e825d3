package appid

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/asklens/asklens/internal/assets/appidentity"
)

func init() {
	// Explicit identity overrides remain authoritative (Options.ExplicitPath and
	// FULMEN_APP_IDENTITY_PATH). Embedded identity provides standalone-binary
	// behavior when no external `.fulmen/app.yaml` can be found.
	//
	// The payload is compiled into the binary, so a registration failure is a
	// packaging defect, not a runtime condition. Failing loudly here beats every
	// command aborting later with "app identity not found".
	if err := appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML); err != nil {
		panic(fmt.Sprintf("embedded app identity rejected: %v", err))
	}
}

func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}
