package user

// ToResponse copies everything except the password hash.
func ToResponse(r Record) Response {
	return Response{
		ID:        r.ID,
		Email:     r.Email,
		UserName:  r.UserName,
		Mobile:    r.Mobile,
		FullName:  r.FullName,
		Role:      r.Role,
		CreatedAt: r.CreatedAt,
	}
}

func ToResponses(records []Record) []Response {
	out := make([]Response, 0, len(records))

	for _, r := range records {
		out = append(out, ToResponse(r))
	}

	return out
}

// Apply overwrites every mutable field. ID and CreatedAt are kept.
func (r *Record) Apply(req Request, passwordHash string) {
	r.Email = req.Email
	r.UserName = req.UserName
	r.PasswordHash = passwordHash
	r.Mobile = req.Mobile
	r.FullName = req.FullName
	r.Role = req.Role
}

// ApplyPatch writes the fields present in p. The password is handled by the
// caller since it has to be hashed first.
func (r *Record) ApplyPatch(p PatchRequest) {
	if p.Email != nil {
		r.Email = *p.Email
	}
	if p.UserName != nil {
		r.UserName = *p.UserName
	}
	if p.Mobile != nil {
		r.Mobile = *p.Mobile
	}
	if p.FullName != nil {
		r.FullName = *p.FullName
	}
	if p.Role != nil {
		r.Role = *p.Role
	}
}
