package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/blissito/formmy-agent-core/internal/chatbot"
	"github.com/blissito/formmy-agent-core/internal/plan"
)

func (s *Server) handleSaveChatbot(c *gin.Context) {
	var def chatbot.Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chatbot definition"})
		return
	}
	if def.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatbot id is required"})
		return
	}
	if err := s.bots.Save(c.Request.Context(), &def); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": def.ID})
}

func (s *Server) handleGetChatbot(c *gin.Context) {
	def, err := s.bots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (s *Server) handleDeleteChatbot(c *gin.Context) {
	if err := s.bots.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetBalance(c *gin.Context) {
	p := plan.Plan(strings.ToUpper(c.DefaultQuery("plan", string(plan.Free))))
	balance, err := s.ledger.GetBalance(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (s *Server) handleAddCredits(c *gin.Context) {
	var body struct {
		Amount int `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}
	if err := s.ledger.AddPurchased(c.Request.Context(), c.Param("id"), body.Amount); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearConversation(c *gin.Context) {
	if err := s.repo.ClearHistory(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
