package global

import (
	"sync"

	"github.com/ctfer-io/covalic/pkg/services/oci"
)

var (
	ociManager *oci.Manager
	ociOnce    sync.Once
)

// GetOCIManager returns the process-wide manager in charge of scoring
// images references.
func GetOCIManager() *oci.Manager {
	ociOnce.Do(func() {
		ociManager = oci.NewManager(oci.Options{
			Resolve:  Conf.OCI.Resolve,
			Insecure: Conf.OCI.Insecure,
			Username: Conf.OCI.Username,
			Password: Conf.OCI.Password,
		})
	})
	return ociManager
}
