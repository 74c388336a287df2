package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"warehouse-system/pkg/utils"
)

// Печатает bcrypt-хеш пароля для ручного обновления users.password_hash.
func main() {
	password := flag.String("p", "", "Пароль. Если пуст, читается из stdin")
	flag.Parse()

	plain := *password
	if plain == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("Не удалось прочитать пароль: %v", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		log.Fatal("Пустой пароль")
	}

	hash, err := utils.HashPassword(plain)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
