package metadata

/** @brief Invoked on a worker when the job starts. The returned value is handed to OnComplete. */
type JobStart func() (interface{}, error)

/** @brief Invoked on the worker after a successful start. */
type JobOnComplete func(result interface{})

/** @brief Invoked on the worker after a failed start. */
type JobOnFailure func(err error)

/**
 * @brief Describes a job to be run by the job system.
 */
type JobTask struct {
	/** @brief Name used in log output. */
	Name string
	/** @brief Entry point of the job. Required. */
	OnStart JobStart
	/** @brief Called when OnStart succeeded. Optional. */
	OnComplete JobOnComplete
	/** @brief Called when OnStart failed. Optional. */
	OnFailure JobOnFailure
	/** @brief Called after either outcome. Optional. */
	OnCompletionCallback func()
}
