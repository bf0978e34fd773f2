package report

import (
	"testing"

	"labstock/testutil"
)

func TestReportUsesBlobFacadeOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.InfraImportForbidden, testutil.TransportImportForbidden),
		"report generation goes through internal/blob and knows nothing of HTTP serving")
}
