package readonly

import (
	"strings"
	"testing"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/testutil"
)

const modulePath = "github.com/Involve-Digital/DoctrineCollectionsReadonly"

// TestPublicPackagesStayStorageFree keeps the view and its contracts free of
// internal packages and storage stacks so they can be handed to plugin code.
func TestPublicPackagesStayStorageFree(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "readonly must not import internal packages")
	testutil.AssertNoTransitiveDependency(t, modulePath+"/pkg/...", func(path string) bool {
		return strings.HasPrefix(path, modulePath+"/internal/") || testutil.StorageImportForbidden(path)
	}, "pkg/ must not depend on internal or storage packages")
}
