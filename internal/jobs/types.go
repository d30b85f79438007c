package jobs

type JobType string

const (
	// JobUserCreated fires after a user record is first persisted.
	JobUserCreated JobType = "user.created"
	// JobUserDeleted fires after a user record is removed.
	JobUserDeleted JobType = "user.deleted"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobUserCreated, JobUserDeleted:
		return true
	default:
		return false
	}
}
