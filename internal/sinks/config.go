package sinks

import (
	"strconv"
	"strings"

	"github.com/hankgalt/batch-export/pkg/domain"
	pkgsinks "github.com/hankgalt/batch-export/pkg/sinks"
)

// SinkConfigFor resolves the customer sink from job parameters:
// a noop sink for dryRun=true, a cloud file sink for gs:// outputs, a local file sink otherwise.
func SinkConfigFor(params domain.JobParameters) (domain.SinkConfig[domain.Customer], error) {
	if v, ok := params.GetString(domain.ParamDryRun); ok && v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return nil, domain.InvalidParametersError(domain.ParamDryRun, "must be a boolean")
		}
		if dryRun {
			return pkgsinks.NoopSinkConfig[domain.Customer]{}, nil
		}
	}

	out, ok := params.GetString(domain.ParamOutputFile)
	if !ok || out == "" {
		return nil, domain.InvalidParametersError(domain.ParamOutputFile, "is required")
	}

	if strings.HasPrefix(out, GCSScheme) {
		bucket, object, err := ParseCloudURL(out)
		if err != nil {
			return nil, domain.InvalidParametersError(domain.ParamOutputFile, err.Error())
		}
		return CloudFileSinkConfig[domain.Customer]{
			Bucket: bucket,
			Object: object,
		}, nil
	}

	return LocalFileSinkConfig[domain.Customer]{Path: out}, nil
}
