package pkg

import (
	"github.com/hashicorp/go-hclog"

	"github.com/sfuhrm/capsula/pkg/descriptor"
	"github.com/sfuhrm/capsula/pkg/logging"
)

// VerifyDescriptorWithLogger validates a descriptor and logs every
// violation. It returns the violations found.
func VerifyDescriptorWithLogger(desc *descriptor.Capsula, logger hclog.Logger) []descriptor.Violation {
	logger.Info("Verifying descriptor", "package", desc.PackageName)

	violations := desc.Validate()
	if len(violations) == 0 {
		logger.Info("✓ Descriptor verification passed", "targets", len(desc.Targets), "versions", len(desc.Versions))
		return nil
	}

	logger.Error("✗ Descriptor verification failed", "error_count", len(violations))
	for _, v := range violations {
		logger.Error("  Verification error", "path", v.Path, "details", v.String())
	}
	return violations
}

// VerifyDescriptorFile loads and validates a descriptor file.
func VerifyDescriptorFile(path string, logger hclog.Logger) ([]descriptor.Violation, error) {
	desc, err := descriptor.Load(path)
	if err != nil {
		return nil, err
	}
	return VerifyDescriptorWithLogger(desc, logger), nil
}

// VerifyDescriptor validates a descriptor file using default logger settings.
func VerifyDescriptor(path string) ([]descriptor.Violation, error) {
	logger := logging.NewLogger("capsula-verify", logging.GetLogLevel(), nil)
	return VerifyDescriptorFile(path, logger)
}
