package rtctoken

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexjbarnes/rtc-token/internal/accesstoken"
	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
)

// Role is the coarse permission level requested for a channel token.
// Numeric values match the token-consuming platform's role ids.
type Role int

const (
	RoleAttendee   Role = 0
	RolePublisher  Role = 1
	RoleSubscriber Role = 2
	RoleAdmin      Role = 101
)

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleAttendee:
		return "attendee"
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attendee":
		return RoleAttendee, nil
	case "publisher":
		return RolePublisher, nil
	case "subscriber":
		return RoleSubscriber, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, s)
	}
}

// CanPublish reports whether the role is granted the publish privileges.
// Only subscribers are join-only. Unrecognised values are treated as
// attendees, which publish, as the platform's reference builder does.
func (r Role) CanPublish() bool {
	return r != RoleSubscriber
}

// Grant applies the role's privileges to svc. Every role may join until
// tokenExpire; publishing roles may publish audio, video and data until
// privilegeExpire.
func Grant(svc *accesstoken.ServiceRtc, role Role, tokenExpire, privilegeExpire uint32) {
	svc.AddPrivilege(accesstoken.PrivilegeJoinChannel, tokenExpire)

	if role.CanPublish() {
		svc.AddPrivilege(accesstoken.PrivilegePublishAudioStream, privilegeExpire)
		svc.AddPrivilege(accesstoken.PrivilegePublishVideoStream, privilegeExpire)
		svc.AddPrivilege(accesstoken.PrivilegePublishDataStream, privilegeExpire)
	}
}

// UIDString converts a numeric user id to the account string carried in
// the token. Zero means "any user" and maps to the empty string.
func UIDString(uid uint32) string {
	if uid == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(uid), 10)
}
