package assets

type Loader interface {
	Load(path string) ([]byte, error)
}
