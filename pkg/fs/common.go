package fs

import (
	"crypto/md5"
	"encoding/hex"
	"os"

	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/global"
)

const (
	dbSubdir    = "db"
	assetSubdir = "assetstore"
	infoExt     = ".json"
)

// Hash computes the Hash of the given ID.
// It is used to get a standard identifier (both in size and format)
// while avoiding filesystem manipulation (e.g. path traversal).
func Hash(id string) string {
	sum := md5.Sum([]byte(id))
	return hex.EncodeToString(sum[:])
}

func fclose(f *os.File) {
	if err := f.Close(); err != nil {
		global.Log().Sub.Error("failed to close file",
			zap.String("name", f.Name()),
			zap.Error(err),
		)
	}
}
