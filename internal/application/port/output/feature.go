package output

import "kosher/internal/domain/entity"

type FeatureParser interface {
	ParseFile(path string) (*entity.Feature, error)
	ParseString(content, uri string) (*entity.Feature, error)
}
