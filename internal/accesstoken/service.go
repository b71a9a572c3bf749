package accesstoken

import (
	"github.com/alexjbarnes/rtc-token/internal/bytebuf"
)

// Service types. Values are part of the wire format.
const (
	ServiceTypeRtc uint16 = 1
)

// Privilege identifies one capability within a service. Values are part
// of the wire format.
type Privilege uint16

// RTC privileges.
const (
	PrivilegeJoinChannel        Privilege = 1
	PrivilegePublishAudioStream Privilege = 2
	PrivilegePublishVideoStream Privilege = 3
	PrivilegePublishDataStream  Privilege = 4
)

// String returns the privilege name used in logs and inspector output.
func (p Privilege) String() string {
	switch p {
	case PrivilegeJoinChannel:
		return "join_channel"
	case PrivilegePublishAudioStream:
		return "publish_audio_stream"
	case PrivilegePublishVideoStream:
		return "publish_video_stream"
	case PrivilegePublishDataStream:
		return "publish_data_stream"
	default:
		return "unknown"
	}
}

// Packable is a service that can be serialized into a token body.
type Packable interface {
	ServiceType() uint16
	Pack(w *bytebuf.Writer)
}

// Service is a bundle of privileges, each with an expiry offset in
// seconds relative to the token's issue timestamp.
type Service struct {
	Type       uint16
	Privileges map[uint16]uint32
}

// NewService returns an empty service of the given type.
func NewService(serviceType uint16) *Service {
	return &Service{
		Type:       serviceType,
		Privileges: make(map[uint16]uint32),
	}
}

// AddPrivilege grants p for expire seconds after issuance. Adding the
// same privilege twice keeps the last expiry.
func (s *Service) AddPrivilege(p Privilege, expire uint32) {
	if s.Privileges == nil {
		s.Privileges = make(map[uint16]uint32)
	}
	s.Privileges[uint16(p)] = expire
}

// ServiceType implements Packable.
func (s *Service) ServiceType() uint16 {
	return s.Type
}

// Pack writes the service type and privilege map.
func (s *Service) Pack(w *bytebuf.Writer) {
	w.PutUint16(s.Type).PutUint32Map(s.Privileges)
}

// ServiceRtc grants access to one real-time channel for one account. An
// empty account means any user id may join.
type ServiceRtc struct {
	Service
	ChannelName string
	Account     string
}

// NewServiceRtc returns an RTC service with no privileges.
func NewServiceRtc(channelName, account string) *ServiceRtc {
	return &ServiceRtc{
		Service:     *NewService(ServiceTypeRtc),
		ChannelName: channelName,
		Account:     account,
	}
}

// Pack writes the base service followed by the channel name and account.
func (s *ServiceRtc) Pack(w *bytebuf.Writer) {
	s.Service.Pack(w)
	w.PutString(s.ChannelName).PutString(s.Account)
}

func unpackService(serviceType uint16, r *bytebuf.Reader) (Packable, error) {
	privileges, err := r.Uint32Map()
	if err != nil {
		return nil, err
	}

	switch serviceType {
	case ServiceTypeRtc:
		channel, err := r.String()
		if err != nil {
			return nil, err
		}
		account, err := r.String()
		if err != nil {
			return nil, err
		}
		return &ServiceRtc{
			Service:     Service{Type: serviceType, Privileges: privileges},
			ChannelName: channel,
			Account:     account,
		}, nil
	default:
		return nil, errUnknownService(serviceType)
	}
}
