package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Krishna-R-Sonar/smart-trello/domain"
)

const requestMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, boards Boards, cards Cards, auth Authenticator, broker *BoardBroker) {
	e.POST("/api/boards", createBoard(boards, auth))
	e.GET("/api/boards", myBoards(boards, auth))
	e.GET("/api/boards/me/invites", invitedBoards(boards, auth))
	e.GET("/api/boards/:id", getBoard(boards, auth))
	e.GET("/api/boards/:id/recommendations", getRecommendations(boards, auth))
	e.GET("/api/boards/:id/stream", streamBoard(boards, auth, broker))
	e.POST("/api/boards/:id/lists", addList(boards, auth))
	e.POST("/api/boards/:id/invite", inviteUser(boards, auth))
	e.POST("/api/boards/:id/accept", acceptInvite(boards, auth))
	e.POST("/api/cards/:boardId", createCard(cards, auth))
	e.PUT("/api/cards/:id", updateCard(cards, auth))
	e.POST("/api/cards/:boardId/move", moveCard(cards, auth))
	e.GET("/healthz", healthz())
}

type messageResponse struct {
	Message string `json:"message"`
}

type boardResponse struct {
	domain.HydratedBoard
	Recommendations []domain.Suggestion `json:"recommendations"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(out)
}

func authClaims(c echo.Context, auth Authenticator) (UserClaims, error) {
	return auth.ClaimsFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
}

// writeError maps the domain error taxonomy onto HTTP statuses. Access
// denials stay generic on purpose.
func writeError(c echo.Context, err error) error {
	var verr domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: verr.Reason})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, messageResponse{Message: "not found"})
	case errors.Is(err, domain.ErrAccessDenied):
		return c.JSON(http.StatusForbidden, messageResponse{Message: "access denied"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "internal error"})
	}
}

func createBoard(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			Title string `json:"title"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		board, err := boards.CreateBoard(c.Request().Context(), claims.ID, req.Title)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, board)
	}
}

func myBoards(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		list, err := boards.MyBoards(c.Request().Context(), claims.ID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func invitedBoards(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if claims.Email == "" {
			return c.JSON(http.StatusOK, []domain.Board{})
		}
		list, err := boards.InvitedBoards(c.Request().Context(), claims.Email)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func getBoard(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		hb, suggestions, err := boards.GetBoard(c.Request().Context(), claims.ID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, boardResponse{HydratedBoard: hb, Recommendations: suggestions})
	}
}

func getRecommendations(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		suggestions, err := boards.Recommendations(c.Request().Context(), claims.ID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, suggestions)
	}
}

func addList(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			Title string `json:"title"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		list, err := boards.AddList(c.Request().Context(), claims.ID, c.Param("id"), req.Title)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, list)
	}
}

func inviteUser(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := boards.Invite(c.Request().Context(), claims.ID, claims.Email, c.Param("id"), req.Email); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("Invite sent to %s", req.Email)})
	}
}

func acceptInvite(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := boards.AcceptInvite(c.Request().Context(), claims.ID, claims.Email, c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Invite accepted"})
	}
}

func createCard(cards Cards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			domain.CardInput
			ListID string `json:"listId"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		card, err := cards.CreateCard(c.Request().Context(), claims.ID, c.Param("boardId"), req.ListID, req.CardInput)
		if err != nil {
			var warn domain.ConsistencyWarning
			if !errors.As(err, &warn) {
				return writeError(c, err)
			}
			log.WithError(warn.Err).WithFields(log.Fields{"board": warn.BoardID, "card": warn.CardID}).Warn("card created with dangling list reference")
		}
		return c.JSON(http.StatusCreated, card)
	}
}

func updateCard(cards Cards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		patch := map[string]any{}
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		card, err := cards.UpdateCard(c.Request().Context(), claims.ID, c.Param("id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, card)
	}
}

func moveCard(cards Cards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := authClaims(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req struct {
			SourceListID string `json:"sourceListId"`
			DestListID   string `json:"destListId"`
			CardID       string `json:"cardId"`
		}
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		err = cards.MoveCard(c.Request().Context(), claims.ID, c.Param("boardId"), req.SourceListID, req.DestListID, req.CardID)
		if err != nil {
			var warn domain.ConsistencyWarning
			if !errors.As(err, &warn) {
				return writeError(c, err)
			}
			log.WithError(warn.Err).WithFields(log.Fields{"board": warn.BoardID, "card": warn.CardID}).Warn("card move left a dangling reference")
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Card moved"})
	}
}
