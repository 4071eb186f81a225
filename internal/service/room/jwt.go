package room

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Rejoin tokens bind a uid to a room so a returning client keeps its
// identity. They are not an authentication mechanism; they exist so a kicked
// identity can be recognized and refused.
type rejoinClaims struct {
	Uid    string
	RoomId string
}

func (s service) generateRejoinToken(uid, roomId string) (string, error) {
	claims := jwt.MapClaims{
		"uid":     uid,
		"room_id": roomId,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.secret))
}

func (s service) parseRejoinToken(tokenString string) (*rejoinClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token")
	}

	uid, _ := claims["uid"].(string)
	roomId, _ := claims["room_id"].(string)
	if uid == "" || roomId == "" {
		return nil, errors.New("invalid token")
	}

	return &rejoinClaims{
		Uid:    uid,
		RoomId: roomId,
	}, nil
}
