package assets

/**
 * @brief Format turns the raw bytes of a file into the data a Storage processes.
 */
type Format[D any] interface {
	// Name is used in log output, e.g. "OBJ".
	Name() string
	Import(bytes []byte) (D, error)
}

/**
 * @brief Processor is implemented by every Storage. The engine calls
 * Process once per update on the main thread.
 */
type Processor interface {
	Name() string
	Process() int
}
