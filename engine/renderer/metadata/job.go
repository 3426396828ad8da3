package metadata

/** @brief Runs the job body. The result is handed to OnComplete. */
type JobStart func() (interface{}, error)

/** @brief Called with the job id and the result of a successful job. */
type JobOnComplete func(jobID string, result interface{})

/** @brief Called with the job id and the error of a failed job. */
type JobOnFailure func(jobID string, err error)

/**
 * @brief Describes a job to be run by the job system.
 */
type JobTask struct {
	/** @brief Unique id. Assigned on submit when left empty. */
	ID string
	/** @brief Invoked on a worker when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked when OnStart returns no error. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked when OnStart returns an error. Optional. */
	OnFailure JobOnFailure
}
